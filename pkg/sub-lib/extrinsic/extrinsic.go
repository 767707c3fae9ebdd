package extrinsic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"golang.org/x/crypto/blake2b"
)

const (
	// Version is the extrinsic format version.
	Version byte = 4
	// signedBit marks the extrinsic as signed in the version byte.
	signedBit byte = 0x80

	// maxPayloadSize is the largest signer payload that is signed as is.
	// Longer payloads are hashed first.
	maxPayloadSize = 256

	addressID byte = 0x00
)

var ErrMalformedExtrinsic = errors.New("malformed extrinsic")

// SignatureKind is the MultiSignature variant.
type SignatureKind byte

const (
	SignatureEd25519 SignatureKind = iota
	SignatureSr25519
	SignatureEcdsa
)

func (k SignatureKind) size() (int, error) {
	switch k {
	case SignatureEd25519, SignatureSr25519:
		return 64, nil
	case SignatureEcdsa:
		return 65, nil
	default:
		return 0, fmt.Errorf("unknown signature kind %d", k)
	}
}

func (k SignatureKind) String() string {
	switch k {
	case SignatureEd25519:
		return "ed25519"
	case SignatureSr25519:
		return "sr25519"
	case SignatureEcdsa:
		return "ecdsa"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

type Signature struct {
	Kind  SignatureKind
	Bytes []byte
}

func (s Signature) Validate() error {
	size, err := s.Kind.size()
	if err != nil {
		return err
	}
	if len(s.Bytes) != size {
		return fmt.Errorf(
			"invalid %s signature length %d, expected %d", s.Kind, len(s.Bytes), size,
		)
	}
	return nil
}

// SignerPayload returns the bytes to be signed: the call followed by the
// extra and additional bytes of the extension chain.
func SignerPayload(call, extra, additional []byte) []byte {
	payload := make([]byte, 0, len(call)+len(extra)+len(additional))
	payload = append(payload, call...)
	payload = append(payload, extra...)
	payload = append(payload, additional...)
	if len(payload) > maxPayloadSize {
		hash := blake2b.Sum256(payload)
		return hash[:]
	}
	return payload
}

// Signed is a decoded signed extrinsic. Body holds the extra bytes followed
// by the call, the split depends on the extension layout of the chain.
type Signed struct {
	Signer    sublib.AccountID
	Signature Signature
	Body      []byte
}

// Encode assembles a signed extrinsic, prefixed by its compact length.
func Encode(signer sublib.AccountID, sig Signature, extra, call []byte) ([]byte, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	var inner bytes.Buffer
	inner.WriteByte(signedBit | Version)
	inner.WriteByte(addressID)
	inner.Write(signer[:])
	inner.WriteByte(byte(sig.Kind))
	inner.Write(sig.Bytes)
	inner.Write(extra)
	inner.Write(call)

	var buf bytes.Buffer
	if err := scale.NewEncoder(&buf).EncodeUintCompact(
		*big.NewInt(int64(inner.Len())),
	); err != nil {
		return nil, err
	}
	buf.Write(inner.Bytes())
	return buf.Bytes(), nil
}

// Decode parses a signed extrinsic produced by Encode.
func Decode(data []byte) (*Signed, error) {
	r := bytes.NewReader(data)
	length, err := scale.NewDecoder(r).DecodeUintCompact()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid length prefix: %s", ErrMalformedExtrinsic, err)
	}
	if !length.IsInt64() || length.Int64() != int64(r.Len()) {
		return nil, fmt.Errorf(
			"%w: length prefix %s does not match %d bytes", ErrMalformedExtrinsic, length, r.Len(),
		)
	}

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedExtrinsic)
	}
	if version != signedBit|Version {
		return nil, fmt.Errorf("%w: unsupported version 0x%02x", ErrMalformedExtrinsic, version)
	}

	kind, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: missing address", ErrMalformedExtrinsic)
	}
	if kind != addressID {
		return nil, fmt.Errorf("%w: unsupported address kind %d", ErrMalformedExtrinsic, kind)
	}
	var signed Signed
	if _, err := io.ReadFull(r, signed.Signer[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated address", ErrMalformedExtrinsic)
	}

	sigKind, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: missing signature", ErrMalformedExtrinsic)
	}
	size, err := SignatureKind(sigKind).size()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedExtrinsic, err)
	}
	sig := make([]byte, size)
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, fmt.Errorf("%w: truncated signature", ErrMalformedExtrinsic)
	}
	signed.Signature = Signature{Kind: SignatureKind(sigKind), Bytes: sig}

	signed.Body = make([]byte, r.Len())
	// nolint: errcheck
	r.Read(signed.Body)
	return &signed, nil
}
