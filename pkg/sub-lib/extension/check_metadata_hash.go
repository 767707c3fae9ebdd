package extension

import (
	"bytes"
	"errors"
	"fmt"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
)

const CheckMetadataHashIdentifier = "CheckMetadataHash"

var ErrInvalidMode = errors.New("invalid metadata hash mode")

// Mode tells whether a metadata digest accompanies the additional data of the
// CheckMetadataHash extension.
type Mode byte

const (
	// ModeDisabled: no digest was provided in the signer payload.
	ModeDisabled Mode = 0x00
	// ModeEnabled: a digest was provided in the signer payload.
	ModeEnabled Mode = 0x01
)

func (m Mode) IsEnabled() bool {
	return m == ModeEnabled
}

func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeEnabled:
		return "enabled"
	default:
		return fmt.Sprintf("unknown(%d)", byte(m))
	}
}

// DecodeMode reads a single mode discriminant. The digest is never part of
// the extra bytes so it cannot be recovered here.
func DecodeMode(r *bytes.Reader) (Mode, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("failed to read metadata hash mode: %w", err)
	}
	switch Mode(b) {
	case ModeDisabled, ModeEnabled:
		return Mode(b), nil
	default:
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidMode, b)
	}
}

// CheckMetadataHashParams carries the mode and the optional digest. The
// digest is set if and only if the mode is enabled; use the two constructors
// below to keep that invariant.
type CheckMetadataHashParams struct {
	Mode   Mode
	Digest *sublib.Hash
}

func DefaultCheckMetadataHashParams() CheckMetadataHashParams {
	return CheckMetadataHashParams{Mode: ModeDisabled}
}

func EnabledCheckMetadataHashParams(digest sublib.Hash) CheckMetadataHashParams {
	return CheckMetadataHashParams{Mode: ModeEnabled, Digest: &digest}
}

// Build copies the params verbatim, the digest is neither computed nor
// validated here.
func (p CheckMetadataHashParams) Build(_ *sublib.ClientState) (SignedExtension, error) {
	ext := &CheckMetadataHash{mode: p.Mode}
	if p.Digest != nil {
		digest := *p.Digest
		ext.digest = &digest
	}
	return ext, nil
}

// CheckMetadataHash lets the signer commit to the metadata it signed against
// without embedding it in the transaction.
type CheckMetadataHash struct {
	mode   Mode
	digest *sublib.Hash
}

func (e *CheckMetadataHash) Mode() Mode {
	return e.mode
}

// Digest returns the digest carried by an enabled instance, nil otherwise.
func (e *CheckMetadataHash) Digest() *sublib.Hash {
	if e.digest == nil {
		return nil
	}
	digest := *e.digest
	return &digest
}

func (e *CheckMetadataHash) Identifier() string {
	return CheckMetadataHashIdentifier
}

func (e *CheckMetadataHash) Matches(
	ext sublib.SignedExtensionMetadata, _ sublib.TypeRegistry,
) bool {
	return ext.Identifier == CheckMetadataHashIdentifier
}

// EncodeExtraTo always writes exactly one byte.
func (e *CheckMetadataHash) EncodeExtraTo(buf *bytes.Buffer) {
	buf.WriteByte(byte(e.mode))
}

// EncodeAdditionalTo writes the mode followed, when present, by the raw
// 32-byte digest with no length prefix.
func (e *CheckMetadataHash) EncodeAdditionalTo(buf *bytes.Buffer) {
	buf.WriteByte(byte(e.mode))
	if e.digest != nil {
		buf.Write(e.digest[:])
	}
}

func (e *CheckMetadataHash) DecodeExtra(r *bytes.Reader) (any, error) {
	return DecodeMode(r)
}
