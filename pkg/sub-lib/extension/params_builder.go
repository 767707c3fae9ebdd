package extension

import (
	"math/big"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
)

// DefaultLayout is the configured order of extension units. Chains that
// declare a different set are configured through ParamsBuilder.Layout.
var DefaultLayout = []string{
	CheckSpecVersionIdentifier,
	CheckTxVersionIdentifier,
	CheckNonceIdentifier,
	CheckGenesisIdentifier,
	CheckMortalityIdentifier,
	ChargeAssetTxPaymentIdentifier,
	ChargeTransactionPaymentIdentifier,
	CheckMetadataHashIdentifier,
}

// ParamsBuilder assembles the params of every unit of the layout. Every
// position starts at its default; the builder methods replace single
// positions.
type ParamsBuilder struct {
	layout       []string
	nonce        *uint64
	tip          *big.Int
	assetID      *uint32
	mortality    CheckMortalityParams
	metadataHash CheckMetadataHashParams
}

func NewParamsBuilder() *ParamsBuilder {
	return &ParamsBuilder{
		layout:       append([]string(nil), DefaultLayout...),
		mortality:    DefaultCheckMortalityParams(),
		metadataHash: DefaultCheckMetadataHashParams(),
	}
}

// Layout replaces the configured units. Unknown names are configured as
// empty extensions.
func (b *ParamsBuilder) Layout(identifiers ...string) *ParamsBuilder {
	b.layout = append([]string(nil), identifiers...)
	return b
}

func (b *ParamsBuilder) Nonce(nonce uint64) *ParamsBuilder {
	b.nonce = &nonce
	return b
}

// Tip sets the tip paid in the native token.
func (b *ParamsBuilder) Tip(tip *big.Int) *ParamsBuilder {
	b.tip = new(big.Int).Set(tip)
	b.assetID = nil
	return b
}

// TipOfAsset sets a tip paid in the given asset. Only ChargeAssetTxPayment
// carries the asset id.
func (b *ParamsBuilder) TipOfAsset(tip *big.Int, assetID uint32) *ParamsBuilder {
	b.tip = new(big.Int).Set(tip)
	b.assetID = &assetID
	return b
}

// Mortal makes the transaction valid for period blocks from the given block.
func (b *ParamsBuilder) Mortal(from sublib.BlockRef, period uint64) *ParamsBuilder {
	b.mortality = CheckMortalityParams{
		Era:        MortalEra(period, from.Number),
		Checkpoint: &from,
	}
	return b
}

func (b *ParamsBuilder) Immortal() *ParamsBuilder {
	b.mortality = DefaultCheckMortalityParams()
	return b
}

// MetadataDigest enables metadata checking with the given digest. It is the
// only position overridden by the digest provider output.
func (b *ParamsBuilder) MetadataDigest(digest sublib.Hash) *ParamsBuilder {
	b.metadataHash = EnabledCheckMetadataHashParams(digest)
	return b
}

// Build returns one params value per layout position.
func (b *ParamsBuilder) Build() []Params {
	params := make([]Params, 0, len(b.layout))
	for _, name := range b.layout {
		params = append(params, b.paramsFor(name))
	}
	return params
}

func (b *ParamsBuilder) paramsFor(name string) Params {
	switch name {
	case CheckSpecVersionIdentifier:
		return CheckSpecVersionParams{}
	case CheckTxVersionIdentifier:
		return CheckTxVersionParams{}
	case CheckNonceIdentifier:
		var nonce *uint64
		if b.nonce != nil {
			n := *b.nonce
			nonce = &n
		}
		return CheckNonceParams{Nonce: nonce}
	case CheckGenesisIdentifier:
		return CheckGenesisParams{}
	case CheckMortalityIdentifier, CheckEraIdentifier:
		return b.mortality
	case ChargeTransactionPaymentIdentifier:
		return ChargeTransactionPaymentParams{Tip: b.tipCopy()}
	case ChargeAssetTxPaymentIdentifier:
		return ChargeAssetTxPaymentParams{Tip: b.tipCopy(), AssetID: b.assetID}
	case CheckMetadataHashIdentifier:
		return b.metadataHash
	default:
		return EmptyParams{Name: name}
	}
}

func (b *ParamsBuilder) tipCopy() *big.Int {
	if b.tip == nil {
		return nil
	}
	return new(big.Int).Set(b.tip)
}
