package extension

import (
	"bytes"
	"fmt"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
)

// Extensions is the ordered chain of signed extensions of a transaction.
// Units are kept in the order the chain declares them, which is the order
// their bytes are concatenated in.
type Extensions struct {
	units []SignedExtension
	names []string
}

// New builds every configured unit from its params and binds the result
// against the extension list declared by the chain metadata. Either every
// unit is constructed and bound or an error is returned.
func New(state *sublib.ClientState, params []Params) (*Extensions, error) {
	if state == nil {
		return nil, &ConstructionError{Index: -1, Err: ErrMissingChainState}
	}

	configured := make([]SignedExtension, 0, len(params))
	for i, p := range params {
		if p == nil {
			return nil, &ConstructionError{Index: i, Err: fmt.Errorf("nil params")}
		}
		unit, err := p.Build(state)
		if err != nil {
			return nil, &ConstructionError{Index: i, Err: err}
		}
		configured = append(configured, unit)
	}

	units, err := bind(state.Metadata.Extensions, state.Metadata.Registry, configured)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(units))
	for _, ext := range state.Metadata.Extensions {
		names = append(names, ext.Identifier)
	}
	return &Extensions{units: units, names: names}, nil
}

// bind walks the declared list once and assigns every name to the first
// configured unit, not bound yet, that recognizes it. Unrecognized names and
// configured units left unbound both fail the whole chain.
func bind(
	declared []sublib.SignedExtensionMetadata, registry sublib.TypeRegistry,
	configured []SignedExtension,
) ([]SignedExtension, error) {
	bound := make([]bool, len(configured))
	seen := make(map[string]struct{}, len(declared))
	units := make([]SignedExtension, 0, len(declared))

	for i, ext := range declared {
		if _, ok := seen[ext.Identifier]; ok {
			return nil, &ConstructionError{
				Index: i, Identifier: ext.Identifier, Err: ErrDuplicateExtension,
			}
		}
		seen[ext.Identifier] = struct{}{}

		match := -1
		for j, unit := range configured {
			if bound[j] {
				continue
			}
			if unit.Matches(ext, registry) {
				match = j
				break
			}
		}
		if match < 0 {
			return nil, &ConstructionError{
				Index: i, Identifier: ext.Identifier, Err: ErrUnknownExtension,
			}
		}
		bound[match] = true
		units = append(units, configured[match])
	}

	for j, ok := range bound {
		if !ok {
			return nil, &ConstructionError{
				Index: j, Identifier: configured[j].Identifier(), Err: ErrMissingExtension,
			}
		}
	}
	return units, nil
}

// EncodeExtra concatenates the extra bytes of every unit in order.
func (e *Extensions) EncodeExtra() []byte {
	var buf bytes.Buffer
	for _, unit := range e.units {
		unit.EncodeExtraTo(&buf)
	}
	return buf.Bytes()
}

// EncodeAdditional concatenates the additional bytes of every unit in order.
func (e *Extensions) EncodeAdditional() []byte {
	var buf bytes.Buffer
	for _, unit := range e.units {
		unit.EncodeAdditionalTo(&buf)
	}
	return buf.Bytes()
}

// Identifiers returns the chain-declared names in encoding order.
func (e *Extensions) Identifiers() []string {
	return append([]string(nil), e.names...)
}

func (e *Extensions) Len() int {
	return len(e.units)
}

// At returns the unit bound at the given position.
func (e *Extensions) At(i int) SignedExtension {
	return e.units[i]
}

// Find returns the unit bound to the given chain-declared name.
func (e *Extensions) Find(identifier string) (SignedExtension, bool) {
	for i, name := range e.names {
		if name == identifier {
			return e.units[i], true
		}
	}
	return nil, false
}

// FindUnit returns the first bound unit of type T.
func FindUnit[T SignedExtension](e *Extensions) (T, bool) {
	for _, unit := range e.units {
		if typed, ok := unit.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// DecodedExtension is one entry of the extra bytes read back from an
// observed transaction. Value is nil for units without extra bytes.
type DecodedExtension struct {
	Identifier string
	Value      any
}

// DecodeExtra reads the extra bytes of an observed transaction. The bound
// units only provide the layout, their own state is not consulted.
func (e *Extensions) DecodeExtra(data []byte) ([]DecodedExtension, error) {
	r := bytes.NewReader(data)
	decoded, err := e.DecodeExtraFrom(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("unexpected %d trailing bytes in extra data", r.Len())
	}
	return decoded, nil
}

// DecodeExtraFrom reads the extra bytes from the head of r and leaves the
// remaining bytes, usually the call, unread.
func (e *Extensions) DecodeExtraFrom(r *bytes.Reader) ([]DecodedExtension, error) {
	decoded := make([]DecodedExtension, 0, len(e.units))
	for i, unit := range e.units {
		decoder, ok := unit.(Decoder)
		if !ok {
			return nil, fmt.Errorf("extension %s cannot be decoded", e.names[i])
		}
		value, err := decoder.DecodeExtra(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode extension %s: %w", e.names[i], err)
		}
		decoded = append(decoded, DecodedExtension{Identifier: e.names[i], Value: value})
	}
	return decoded, nil
}

// FindDecoded returns the decoded value of the extension with the given name.
func FindDecoded[T any](decoded []DecodedExtension, identifier string) (T, bool) {
	var zero T
	for _, d := range decoded {
		if d.Identifier != identifier {
			continue
		}
		value, ok := d.Value.(T)
		if !ok {
			return zero, false
		}
		return value, true
	}
	return zero, false
}
