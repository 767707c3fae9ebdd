package extension

import (
	"bytes"
	"errors"
	"fmt"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
)

var (
	ErrUnknownExtension   = errors.New("unrecognized extension name")
	ErrMissingExtension   = errors.New("configured extension not declared by chain")
	ErrDuplicateExtension = errors.New("extension declared more than once")
	ErrMissingChainState  = sublib.ErrMissingChainState
)

// Encoder appends the two contributions of a signed extension. Encoding is
// total: implementations never fail and always produce the same bytes for the
// same instance.
type Encoder interface {
	// EncodeExtraTo appends the bytes that are signed and included in the
	// submitted transaction.
	EncodeExtraTo(buf *bytes.Buffer)
	// EncodeAdditionalTo appends the bytes that are signed but stripped from
	// the submitted transaction.
	EncodeAdditionalTo(buf *bytes.Buffer)
}

// SignedExtension is a unit of the extension chain.
type SignedExtension interface {
	Encoder
	// Identifier returns the canonical name of the extension.
	Identifier() string
	// Matches reports whether the extension is the one declared by the chain
	// in ext. The type ids of ext refer to the chain registry types; units
	// with a fixed layout only compare the identifier.
	Matches(ext sublib.SignedExtensionMetadata, types sublib.TypeRegistry) bool
}

// Decoder is implemented by extensions whose extra bytes can be read back
// from an observed transaction.
type Decoder interface {
	DecodeExtra(r *bytes.Reader) (any, error)
}

// Params is the per-unit construction parameter. Build is the constructor of
// the unit it describes.
type Params interface {
	Build(state *sublib.ClientState) (SignedExtension, error)
}

// ConstructionError is returned when the extension chain cannot be built,
// either because a unit failed to construct or because binding against the
// chain-declared list failed.
type ConstructionError struct {
	Index      int
	Identifier string
	Err        error
}

func (e *ConstructionError) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("extension construction failed at position %d: %s", e.Index, e.Err)
	}
	return fmt.Sprintf(
		"extension construction failed at position %d (%s): %s", e.Index, e.Identifier, e.Err,
	)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}
