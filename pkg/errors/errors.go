package errors

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	ExitCode int
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	ExitCode() int
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) ExitCode() int {
	return e.code.ExitCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type InvalidRequestMetadata struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type ChainStateMetadata struct {
	Source string `json:"source"`
}

type DigestMetadata struct {
	SpecName    string `json:"spec_name"`
	SpecVersion uint32 `json:"spec_version"`
}

type ConstructionMetadata struct {
	Index      int    `json:"index"`
	Identifier string `json:"identifier"`
}

type SignerMetadata struct {
	Signer string `json:"signer"`
}

type TxNotFoundMetadata struct {
	ID string `json:"id"`
}

type ExtrinsicMetadata struct {
	Tx string `json:"tx"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", 1}
var INVALID_REQUEST = Code[InvalidRequestMetadata]{1, "INVALID_REQUEST", 2}
var CHAIN_STATE_UNAVAILABLE = Code[ChainStateMetadata]{2, "CHAIN_STATE_UNAVAILABLE", 3}
var UPSTREAM_DIGEST_ERROR = Code[DigestMetadata]{3, "UPSTREAM_DIGEST_ERROR", 4}
var CONSTRUCTION_ERROR = Code[ConstructionMetadata]{4, "CONSTRUCTION_ERROR", 5}
var SIGNING_FAILED = Code[SignerMetadata]{5, "SIGNING_FAILED", 6}
var TX_NOT_FOUND = Code[TxNotFoundMetadata]{6, "TX_NOT_FOUND", 7}
var MALFORMED_EXTRINSIC = Code[ExtrinsicMetadata]{7, "MALFORMED_EXTRINSIC", 2}
