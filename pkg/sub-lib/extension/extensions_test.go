package extension_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/arkade-os/subsign/pkg/sub-lib/extension"
	"github.com/stretchr/testify/require"
)

const (
	testSpecVersion = 1_002_000
	testTxVersion   = 25
	testNonce       = 7
)

func declared(names ...string) []sublib.SignedExtensionMetadata {
	exts := make([]sublib.SignedExtensionMetadata, 0, len(names))
	for i, name := range names {
		exts = append(exts, sublib.SignedExtensionMetadata{
			Identifier: name, TypeID: uint32(100 + i), AdditionalTypeID: 0,
		})
	}
	return exts
}

func testState(names ...string) *sublib.ClientState {
	genesis := repeatedHash(0x11)
	return &sublib.ClientState{
		GenesisHash: &genesis,
		RuntimeVersion: &sublib.RuntimeVersion{
			SpecName:           "node-subtensor",
			SpecVersion:        testSpecVersion,
			TransactionVersion: testTxVersion,
		},
		Account:    &sublib.AccountInfo{NextNonce: testNonce},
		SS58Prefix: 42,
		Metadata: sublib.ChainMetadata{
			Extensions: declared(names...),
			Registry:   sublib.MapRegistry{},
		},
	}
}

func TestExtensions(t *testing.T) {
	t.Run("default layout", func(t *testing.T) {
		state := testState(extension.DefaultLayout...)
		exts, err := extension.New(state, extension.NewParamsBuilder().Build())
		require.NoError(t, err)
		require.Equal(t, len(extension.DefaultLayout), exts.Len())
		require.Equal(t, extension.DefaultLayout, exts.Identifiers())

		// nonce 7 (compact), immortal era, asset tip 0 + None, tip 0, mode disabled
		require.Equal(t, "1c0000000000", hex.EncodeToString(exts.EncodeExtra()))

		genesis := bytes.Repeat([]byte{0x11}, 32)
		var expected []byte
		expected = append(expected, 0x10, 0x4a, 0x0f, 0x00) // spec version LE
		expected = append(expected, 0x19, 0x00, 0x00, 0x00) // tx version LE
		expected = append(expected, genesis...)             // CheckGenesis
		expected = append(expected, genesis...)             // CheckMortality (immortal)
		expected = append(expected, 0x00)                   // CheckMetadataHash disabled
		require.Equal(t, expected, exts.EncodeAdditional())
	})

	t.Run("metadata hash contributes one byte of extra", func(t *testing.T) {
		state := testState(extension.DefaultLayout...)
		disabled, err := extension.New(state, extension.NewParamsBuilder().Build())
		require.NoError(t, err)
		enabled, err := extension.New(
			state, extension.NewParamsBuilder().MetadataDigest(repeatedHash(0xab)).Build(),
		)
		require.NoError(t, err)

		require.Len(t, enabled.EncodeExtra(), len(disabled.EncodeExtra()))
		require.Len(t, enabled.EncodeAdditional(), len(disabled.EncodeAdditional())+32)

		unit, ok := enabled.Find(extension.CheckMetadataHashIdentifier)
		require.True(t, ok)
		extra, additional := encode(unit)
		require.Equal(t, []byte{0x01}, extra)
		require.Equal(t, append([]byte{0x01}, bytes.Repeat([]byte{0xab}, 32)...), additional)

		unit, ok = disabled.Find(extension.CheckMetadataHashIdentifier)
		require.True(t, ok)
		extra, additional = encode(unit)
		require.Equal(t, []byte{0x00}, extra)
		require.Equal(t, []byte{0x00}, additional)
	})

	t.Run("encoding follows declared order", func(t *testing.T) {
		names := []string{
			extension.CheckMetadataHashIdentifier,
			extension.CheckNonceIdentifier,
			extension.CheckSpecVersionIdentifier,
			extension.CheckTxVersionIdentifier,
			extension.CheckGenesisIdentifier,
			extension.CheckEraIdentifier,
			extension.ChargeTransactionPaymentIdentifier,
			extension.ChargeAssetTxPaymentIdentifier,
		}
		state := testState(names...)
		exts, err := extension.New(
			state, extension.NewParamsBuilder().MetadataDigest(repeatedHash(0xab)).Build(),
		)
		require.NoError(t, err)
		require.Equal(t, names, exts.Identifiers())

		// mode first, then nonce, era, tips
		require.Equal(t, "011c00000000", hex.EncodeToString(exts.EncodeExtra()))
		additional := exts.EncodeAdditional()
		require.Equal(t, byte(0x01), additional[0])
		require.Equal(t, bytes.Repeat([]byte{0xab}, 32), additional[1:33])

		_, ok := extension.FindUnit[*extension.CheckMortality](exts)
		require.True(t, ok)
	})

	t.Run("repeated encoding is identical", func(t *testing.T) {
		state := testState(extension.DefaultLayout...)
		exts, err := extension.New(
			state, extension.NewParamsBuilder().Tip(big.NewInt(1000)).Build(),
		)
		require.NoError(t, err)
		require.Equal(t, exts.EncodeExtra(), exts.EncodeExtra())
		require.Equal(t, exts.EncodeAdditional(), exts.EncodeAdditional())
	})

	t.Run("empty extensions", func(t *testing.T) {
		names := append([]string{"CheckNonZeroSender"}, extension.DefaultLayout...)
		names = append(names, "CheckWeight")
		state := testState(names...)
		registry := sublib.MapRegistry{
			0:   {Path: "()"},
			100: {Path: "frame_system::CheckNonZeroSender"},
		}
		registry[uint32(100+len(names)-1)] = sublib.TypeDef{Path: "frame_system::CheckWeight"}
		state.Metadata.Registry = registry

		layout := append([]string{"CheckNonZeroSender"}, extension.DefaultLayout...)
		layout = append(layout, "CheckWeight")
		exts, err := extension.New(state, extension.NewParamsBuilder().Layout(layout...).Build())
		require.NoError(t, err)
		require.Equal(t, "1c0000000000", hex.EncodeToString(exts.EncodeExtra()))

		// the same name with a sized type is not an empty extension
		state.Metadata.Registry = sublib.MapRegistry{0: {Path: "()"}, 100: {Fields: 1}}
		_, err = extension.New(state, extension.NewParamsBuilder().Layout(layout...).Build())
		require.Error(t, err)
		require.ErrorIs(t, err, extension.ErrUnknownExtension)
	})

	t.Run("empty extra with sized additional", func(t *testing.T) {
		names := append([]string{"CheckFoo"}, extension.DefaultLayout...)
		state := testState(names...)
		state.Metadata.Extensions[0].AdditionalTypeID = 50
		state.Metadata.Registry = sublib.MapRegistry{
			0:   {Path: "()"},
			50:  {Path: "u32", Fields: 1},
			100: {Path: "()"},
		}

		exts, err := extension.New(state, extension.NewParamsBuilder().Layout(names...).Build())
		require.Error(t, err)
		require.Nil(t, exts)
		require.ErrorIs(t, err, extension.ErrUnknownExtension)

		var constructionErr *extension.ConstructionError
		require.True(t, errors.As(err, &constructionErr))
		require.Equal(t, "CheckFoo", constructionErr.Identifier)

		state.Metadata.Extensions[0].AdditionalTypeID = 0
		exts, err = extension.New(state, extension.NewParamsBuilder().Layout(names...).Build())
		require.NoError(t, err)
		require.Equal(t, names, exts.Identifiers())
	})
}

func TestExtensionsInvalid(t *testing.T) {
	tests := []struct {
		name          string
		state         func() *sublib.ClientState
		builder       func() *extension.ParamsBuilder
		expectedError error
		identifier    string
	}{
		{
			name: "metadata hash not declared",
			state: func() *sublib.ClientState {
				return testState(extension.DefaultLayout[:len(extension.DefaultLayout)-1]...)
			},
			builder:       extension.NewParamsBuilder,
			expectedError: extension.ErrMissingExtension,
			identifier:    extension.CheckMetadataHashIdentifier,
		},
		{
			name: "unknown declared extension",
			state: func() *sublib.ClientState {
				return testState(append(extension.DefaultLayout, "CheckSomethingElse")...)
			},
			builder:       extension.NewParamsBuilder,
			expectedError: extension.ErrUnknownExtension,
			identifier:    "CheckSomethingElse",
		},
		{
			name: "duplicated declared extension",
			state: func() *sublib.ClientState {
				return testState(append(extension.DefaultLayout, "CheckNonce")...)
			},
			builder:       extension.NewParamsBuilder,
			expectedError: extension.ErrDuplicateExtension,
			identifier:    "CheckNonce",
		},
		{
			name: "missing runtime version",
			state: func() *sublib.ClientState {
				state := testState(extension.DefaultLayout...)
				state.RuntimeVersion = nil
				return state
			},
			builder:       extension.NewParamsBuilder,
			expectedError: extension.ErrMissingChainState,
		},
		{
			name: "missing genesis",
			state: func() *sublib.ClientState {
				state := testState(extension.DefaultLayout...)
				state.GenesisHash = nil
				return state
			},
			builder:       extension.NewParamsBuilder,
			expectedError: extension.ErrMissingChainState,
		},
		{
			name: "missing account without explicit nonce",
			state: func() *sublib.ClientState {
				state := testState(extension.DefaultLayout...)
				state.Account = nil
				return state
			},
			builder:       extension.NewParamsBuilder,
			expectedError: extension.ErrMissingChainState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exts, err := extension.New(tt.state(), tt.builder().Build())
			require.Error(t, err)
			require.Nil(t, exts)
			require.ErrorIs(t, err, tt.expectedError)

			var constructionErr *extension.ConstructionError
			require.True(t, errors.As(err, &constructionErr))
			if tt.identifier != "" {
				require.Equal(t, tt.identifier, constructionErr.Identifier)
			}
		})
	}

	t.Run("explicit nonce needs no account", func(t *testing.T) {
		state := testState(extension.DefaultLayout...)
		state.Account = nil
		exts, err := extension.New(state, extension.NewParamsBuilder().Nonce(64).Build())
		require.NoError(t, err)
		require.Equal(t, "01010000000000", hex.EncodeToString(exts.EncodeExtra()))
	})

	t.Run("nil state", func(t *testing.T) {
		_, err := extension.New(nil, extension.NewParamsBuilder().Build())
		require.ErrorIs(t, err, extension.ErrMissingChainState)
	})
}

func TestDecodeExtra(t *testing.T) {
	state := testState(extension.DefaultLayout...)
	checkpoint := sublib.BlockRef{Number: 42, Hash: repeatedHash(0x22)}
	built, err := extension.New(state, extension.NewParamsBuilder().
		Nonce(16384).
		TipOfAsset(big.NewInt(5), 9).
		Mortal(checkpoint, 64).
		MetadataDigest(repeatedHash(0xab)).
		Build(),
	)
	require.NoError(t, err)

	observer, err := extension.New(state, extension.NewParamsBuilder().Build())
	require.NoError(t, err)

	decoded, err := observer.DecodeExtra(built.EncodeExtra())
	require.NoError(t, err)
	require.Len(t, decoded, len(extension.DefaultLayout))

	nonce, ok := extension.FindDecoded[uint64](decoded, extension.CheckNonceIdentifier)
	require.True(t, ok)
	require.Equal(t, uint64(16384), nonce)

	era, ok := extension.FindDecoded[extension.Era](decoded, extension.CheckMortalityIdentifier)
	require.True(t, ok)
	require.Equal(t, extension.Era{Period: 64, Phase: 42}, era)

	tip, ok := extension.FindDecoded[extension.AssetTip](
		decoded, extension.ChargeAssetTxPaymentIdentifier,
	)
	require.True(t, ok)
	require.Equal(t, int64(5), tip.Tip.Int64())
	require.NotNil(t, tip.AssetID)
	require.Equal(t, uint32(9), *tip.AssetID)

	mode, ok := extension.FindDecoded[extension.Mode](
		decoded, extension.CheckMetadataHashIdentifier,
	)
	require.True(t, ok)
	require.Equal(t, extension.ModeEnabled, mode)

	// the mode only, the digest never travels in the extra bytes
	_, ok = extension.FindDecoded[sublib.Hash](decoded, extension.CheckMetadataHashIdentifier)
	require.False(t, ok)

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := observer.DecodeExtra(append(built.EncodeExtra(), 0x00))
		require.ErrorContains(t, err, "trailing bytes")
	})

	t.Run("truncated", func(t *testing.T) {
		extra := built.EncodeExtra()
		_, err := observer.DecodeExtra(extra[:len(extra)-1])
		require.Error(t, err)
	})
}

func TestCheckMortalityParams(t *testing.T) {
	state := testState(extension.DefaultLayout...)
	checkpoint := &sublib.BlockRef{Number: 42, Hash: repeatedHash(0x33)}

	t.Run("valid", func(t *testing.T) {
		for _, era := range []extension.Era{
			extension.ImmortalEra(),
			extension.MortalEra(64, 42),
			extension.MortalEra(5, 42),
			extension.MortalEra(1<<20, 1_000_000),
			{Period: 4, Phase: 3},
			{Period: 1 << 16, Phase: 16},
		} {
			ext, err := extension.CheckMortalityParams{Era: era, Checkpoint: checkpoint}.Build(state)
			require.NoError(t, err, era.String())
			require.Equal(t, era, ext.(*extension.CheckMortality).Era())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			era  extension.Era
		}{
			{"period not a power of two", extension.Era{Period: 5}},
			{"period too short", extension.Era{Period: 2}},
			{"period too long", extension.Era{Period: 1 << 17}},
			{"phase not below period", extension.Era{Period: 64, Phase: 64}},
			{"phase not quantized", extension.Era{Period: 1 << 16, Phase: 3}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := extension.CheckMortalityParams{
					Era: tt.era, Checkpoint: checkpoint,
				}.Build(state)
				require.ErrorContains(t, err, "invalid mortal era")
			})
		}
	})
}
