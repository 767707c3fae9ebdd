package extension

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
)

const (
	CheckSpecVersionIdentifier         = "CheckSpecVersion"
	CheckTxVersionIdentifier           = "CheckTxVersion"
	CheckNonceIdentifier               = "CheckNonce"
	CheckGenesisIdentifier             = "CheckGenesis"
	CheckMortalityIdentifier           = "CheckMortality"
	CheckEraIdentifier                 = "CheckEra"
	ChargeTransactionPaymentIdentifier = "ChargeTransactionPayment"
	ChargeAssetTxPaymentIdentifier     = "ChargeAssetTxPayment"
)

// CheckSpecVersion

type CheckSpecVersionParams struct{}

func (CheckSpecVersionParams) Build(state *sublib.ClientState) (SignedExtension, error) {
	if state == nil || state.RuntimeVersion == nil {
		return nil, fmt.Errorf("%w: runtime version", ErrMissingChainState)
	}
	return &CheckSpecVersion{version: state.RuntimeVersion.SpecVersion}, nil
}

// CheckSpecVersion commits to the runtime spec version.
type CheckSpecVersion struct {
	version uint32
}

func (e *CheckSpecVersion) Identifier() string { return CheckSpecVersionIdentifier }

func (e *CheckSpecVersion) Matches(ext sublib.SignedExtensionMetadata, _ sublib.TypeRegistry) bool {
	return ext.Identifier == CheckSpecVersionIdentifier
}

func (e *CheckSpecVersion) EncodeExtraTo(_ *bytes.Buffer) {}

func (e *CheckSpecVersion) EncodeAdditionalTo(buf *bytes.Buffer) {
	writeValue(buf, e.version)
}

func (e *CheckSpecVersion) DecodeExtra(_ *bytes.Reader) (any, error) { return nil, nil }

// CheckTxVersion

type CheckTxVersionParams struct{}

func (CheckTxVersionParams) Build(state *sublib.ClientState) (SignedExtension, error) {
	if state == nil || state.RuntimeVersion == nil {
		return nil, fmt.Errorf("%w: runtime version", ErrMissingChainState)
	}
	return &CheckTxVersion{version: state.RuntimeVersion.TransactionVersion}, nil
}

// CheckTxVersion commits to the transaction version.
type CheckTxVersion struct {
	version uint32
}

func (e *CheckTxVersion) Identifier() string { return CheckTxVersionIdentifier }

func (e *CheckTxVersion) Matches(ext sublib.SignedExtensionMetadata, _ sublib.TypeRegistry) bool {
	return ext.Identifier == CheckTxVersionIdentifier
}

func (e *CheckTxVersion) EncodeExtraTo(_ *bytes.Buffer) {}

func (e *CheckTxVersion) EncodeAdditionalTo(buf *bytes.Buffer) {
	writeValue(buf, e.version)
}

func (e *CheckTxVersion) DecodeExtra(_ *bytes.Reader) (any, error) { return nil, nil }

// CheckNonce

// CheckNonceParams sets the account nonce. A nil Nonce means the next nonce
// reported by the chain for the signer account.
type CheckNonceParams struct {
	Nonce *uint64
}

func (p CheckNonceParams) Build(state *sublib.ClientState) (SignedExtension, error) {
	if p.Nonce != nil {
		return &CheckNonce{nonce: *p.Nonce}, nil
	}
	if state == nil || state.Account == nil {
		return nil, fmt.Errorf("%w: account nonce", ErrMissingChainState)
	}
	return &CheckNonce{nonce: state.Account.NextNonce}, nil
}

type CheckNonce struct {
	nonce uint64
}

func (e *CheckNonce) Nonce() uint64 { return e.nonce }

func (e *CheckNonce) Identifier() string { return CheckNonceIdentifier }

func (e *CheckNonce) Matches(ext sublib.SignedExtensionMetadata, _ sublib.TypeRegistry) bool {
	return ext.Identifier == CheckNonceIdentifier
}

func (e *CheckNonce) EncodeExtraTo(buf *bytes.Buffer) {
	writeCompact(buf, new(big.Int).SetUint64(e.nonce))
}

func (e *CheckNonce) EncodeAdditionalTo(_ *bytes.Buffer) {}

func (e *CheckNonce) DecodeExtra(r *bytes.Reader) (any, error) {
	nonce, err := readCompact(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	if !nonce.IsUint64() {
		return nil, fmt.Errorf("nonce %s overflows uint64", nonce)
	}
	return nonce.Uint64(), nil
}

// CheckGenesis

type CheckGenesisParams struct{}

func (CheckGenesisParams) Build(state *sublib.ClientState) (SignedExtension, error) {
	if state == nil || state.GenesisHash == nil {
		return nil, fmt.Errorf("%w: genesis hash", ErrMissingChainState)
	}
	return &CheckGenesis{genesis: *state.GenesisHash}, nil
}

// CheckGenesis commits to the chain the transaction is meant for.
type CheckGenesis struct {
	genesis sublib.Hash
}

func (e *CheckGenesis) Identifier() string { return CheckGenesisIdentifier }

func (e *CheckGenesis) Matches(ext sublib.SignedExtensionMetadata, _ sublib.TypeRegistry) bool {
	return ext.Identifier == CheckGenesisIdentifier
}

func (e *CheckGenesis) EncodeExtraTo(_ *bytes.Buffer) {}

func (e *CheckGenesis) EncodeAdditionalTo(buf *bytes.Buffer) {
	buf.Write(e.genesis[:])
}

func (e *CheckGenesis) DecodeExtra(_ *bytes.Reader) (any, error) { return nil, nil }

// CheckMortality

// CheckMortalityParams defaults to an immortal era. For a mortal era the
// checkpoint block is the block the era is computed from.
type CheckMortalityParams struct {
	Era        Era
	Checkpoint *sublib.BlockRef
}

func DefaultCheckMortalityParams() CheckMortalityParams {
	return CheckMortalityParams{Era: ImmortalEra()}
}

func (p CheckMortalityParams) Build(state *sublib.ClientState) (SignedExtension, error) {
	if p.Era.Immortal {
		if state == nil || state.GenesisHash == nil {
			return nil, fmt.Errorf("%w: genesis hash", ErrMissingChainState)
		}
		return &CheckMortality{era: ImmortalEra(), checkpoint: *state.GenesisHash}, nil
	}
	if p.Checkpoint == nil {
		return nil, fmt.Errorf("mortal era requires a checkpoint block")
	}
	if err := p.Era.Validate(); err != nil {
		return nil, err
	}
	return &CheckMortality{era: p.Era, checkpoint: p.Checkpoint.Hash}, nil
}

type CheckMortality struct {
	era        Era
	checkpoint sublib.Hash
}

func (e *CheckMortality) Era() Era { return e.era }

func (e *CheckMortality) Identifier() string { return CheckMortalityIdentifier }

// Matches accepts both the current and the legacy name of the extension.
func (e *CheckMortality) Matches(ext sublib.SignedExtensionMetadata, _ sublib.TypeRegistry) bool {
	return ext.Identifier == CheckMortalityIdentifier || ext.Identifier == CheckEraIdentifier
}

func (e *CheckMortality) EncodeExtraTo(buf *bytes.Buffer) {
	e.era.encodeTo(buf)
}

func (e *CheckMortality) EncodeAdditionalTo(buf *bytes.Buffer) {
	buf.Write(e.checkpoint[:])
}

func (e *CheckMortality) DecodeExtra(r *bytes.Reader) (any, error) {
	return decodeEra(r)
}

// ChargeTransactionPayment

type ChargeTransactionPaymentParams struct {
	Tip *big.Int
}

func (p ChargeTransactionPaymentParams) Build(_ *sublib.ClientState) (SignedExtension, error) {
	tip := new(big.Int)
	if p.Tip != nil {
		if p.Tip.Sign() < 0 {
			return nil, fmt.Errorf("invalid negative tip %s", p.Tip)
		}
		tip.Set(p.Tip)
	}
	return &ChargeTransactionPayment{tip: tip}, nil
}

type ChargeTransactionPayment struct {
	tip *big.Int
}

func (e *ChargeTransactionPayment) Tip() *big.Int { return new(big.Int).Set(e.tip) }

func (e *ChargeTransactionPayment) Identifier() string {
	return ChargeTransactionPaymentIdentifier
}

func (e *ChargeTransactionPayment) Matches(
	ext sublib.SignedExtensionMetadata, _ sublib.TypeRegistry,
) bool {
	return ext.Identifier == ChargeTransactionPaymentIdentifier
}

func (e *ChargeTransactionPayment) EncodeExtraTo(buf *bytes.Buffer) {
	writeCompact(buf, e.tip)
}

func (e *ChargeTransactionPayment) EncodeAdditionalTo(_ *bytes.Buffer) {}

func (e *ChargeTransactionPayment) DecodeExtra(r *bytes.Reader) (any, error) {
	tip, err := readCompact(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tip: %w", err)
	}
	return tip, nil
}

// ChargeAssetTxPayment

type ChargeAssetTxPaymentParams struct {
	Tip     *big.Int
	AssetID *uint32
}

func (p ChargeAssetTxPaymentParams) Build(_ *sublib.ClientState) (SignedExtension, error) {
	tip := new(big.Int)
	if p.Tip != nil {
		if p.Tip.Sign() < 0 {
			return nil, fmt.Errorf("invalid negative tip %s", p.Tip)
		}
		tip.Set(p.Tip)
	}
	ext := &ChargeAssetTxPayment{tip: tip}
	if p.AssetID != nil {
		id := *p.AssetID
		ext.assetID = &id
	}
	return ext, nil
}

type ChargeAssetTxPayment struct {
	tip     *big.Int
	assetID *uint32
}

// AssetTip is the decoded extra of ChargeAssetTxPayment.
type AssetTip struct {
	Tip     *big.Int
	AssetID *uint32
}

func (e *ChargeAssetTxPayment) Identifier() string { return ChargeAssetTxPaymentIdentifier }

func (e *ChargeAssetTxPayment) Matches(
	ext sublib.SignedExtensionMetadata, _ sublib.TypeRegistry,
) bool {
	return ext.Identifier == ChargeAssetTxPaymentIdentifier
}

func (e *ChargeAssetTxPayment) EncodeExtraTo(buf *bytes.Buffer) {
	writeCompact(buf, e.tip)
	if e.assetID == nil {
		writeOption(buf, false, nil)
		return
	}
	writeOption(buf, true, *e.assetID)
}

func (e *ChargeAssetTxPayment) EncodeAdditionalTo(_ *bytes.Buffer) {}

func (e *ChargeAssetTxPayment) DecodeExtra(r *bytes.Reader) (any, error) {
	tip, err := readCompact(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tip: %w", err)
	}
	decoded := AssetTip{Tip: tip}

	flag, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to decode asset id option: %w", err)
	}
	switch flag {
	case 0x00:
	case 0x01:
		var raw [4]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return nil, fmt.Errorf("failed to decode asset id: %w", err)
		}
		id := binary.LittleEndian.Uint32(raw[:])
		decoded.AssetID = &id
	default:
		return nil, fmt.Errorf("invalid asset id option flag 0x%02x", flag)
	}
	return decoded, nil
}

// Empty

// EmptyParams configures an extension that contributes no bytes. It only
// binds to a chain-declared extension of the same name whose extra and
// additional types are both zero sized in the chain registry.
type EmptyParams struct {
	Name string
}

func (p EmptyParams) Build(_ *sublib.ClientState) (SignedExtension, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("empty extension requires a name")
	}
	return &Empty{name: p.Name}, nil
}

type Empty struct {
	name string
}

func (e *Empty) Identifier() string { return e.name }

// Matches requires both the extra and the additional type to be zero sized.
func (e *Empty) Matches(ext sublib.SignedExtensionMetadata, types sublib.TypeRegistry) bool {
	if ext.Identifier != e.name || types == nil {
		return false
	}
	return types.IsZeroSized(ext.TypeID) && types.IsZeroSized(ext.AdditionalTypeID)
}

func (e *Empty) EncodeExtraTo(_ *bytes.Buffer) {}

func (e *Empty) EncodeAdditionalTo(_ *bytes.Buffer) {}

func (e *Empty) DecodeExtra(_ *bytes.Reader) (any, error) { return nil, nil }
