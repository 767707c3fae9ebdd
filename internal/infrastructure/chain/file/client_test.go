package filechain_test

import (
	"context"
	"encoding/hex"
	"testing"

	filechain "github.com/arkade-os/subsign/internal/infrastructure/chain/file"
	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/stretchr/testify/require"
)

var testMetadata = "6d6574610f000102030405060708090a0b0c0d0e0f"

func TestChainClient(t *testing.T) {
	ctx := context.Background()

	t.Run("yaml", func(t *testing.T) {
		client, err := filechain.NewChainClient("testdata/snapshot.yaml")
		require.NoError(t, err)
		defer client.Close()

		state, err := client.State(ctx)
		require.NoError(t, err)
		require.NotNil(t, state.GenesisHash)
		require.Equal(
			t, "91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3",
			hex.EncodeToString(state.GenesisHash[:]),
		)
		require.Equal(t, &sublib.RuntimeVersion{
			SpecName: "node", SpecVersion: 100, TransactionVersion: 1,
		}, state.RuntimeVersion)
		require.Equal(t, uint16(42), state.SS58Prefix)
		require.Equal(t, "Test", state.TokenSymbol)
		require.Equal(t, uint8(14), state.TokenDecimals)
		require.Equal(t, testMetadata, hex.EncodeToString(state.Metadata.Raw))
		require.NotNil(t, state.BestBlock)
		require.Equal(t, uint64(42), state.BestBlock.Number)
		require.Nil(t, state.Account)

		require.Equal(t, []string{
			"CheckNonZeroSender", "CheckSpecVersion", "CheckTxVersion", "CheckGenesis",
			"CheckMortality", "CheckNonce", "CheckWeight", "ChargeTransactionPayment",
			"CheckMetadataHash",
		}, state.ExtensionNames())
		require.Equal(t, uint32(905), state.Metadata.Extensions[8].AdditionalTypeID)
		require.True(t, state.Metadata.Registry.IsZeroSized(900))
		require.False(t, state.Metadata.Registry.IsZeroSized(904))
		require.False(t, state.Metadata.Registry.IsZeroSized(1))

		// callers can't alter the snapshot
		state.Metadata.Extensions[0].Identifier = "Changed"
		again, err := client.State(ctx)
		require.NoError(t, err)
		require.Equal(t, "CheckNonZeroSender", again.Metadata.Extensions[0].Identifier)

		var known sublib.AccountID
		for i := range known {
			known[i] = 0x22
		}
		account, err := client.Account(ctx, known)
		require.NoError(t, err)
		require.Equal(t, known, account.ID)
		require.Equal(t, uint64(7), account.NextNonce)

		account, err = client.Account(ctx, sublib.AccountID{})
		require.NoError(t, err)
		require.Zero(t, account.NextNonce)
	})

	t.Run("json", func(t *testing.T) {
		client, err := filechain.NewChainClient("testdata/snapshot.json")
		require.NoError(t, err)
		defer client.Close()

		state, err := client.State(ctx)
		require.NoError(t, err)
		require.Equal(t, testMetadata, hex.EncodeToString(state.Metadata.Raw))
		require.Equal(t, []string{"CheckSpecVersion", "CheckMetadataHash"}, state.ExtensionNames())
		require.Nil(t, state.BestBlock)
	})

	t.Run("closed", func(t *testing.T) {
		client, err := filechain.NewChainClient("testdata/snapshot.json")
		require.NoError(t, err)
		client.Close()

		_, err = client.State(ctx)
		require.Error(t, err)
		_, err = client.Account(ctx, sublib.AccountID{})
		require.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		client, err := filechain.NewChainClient("testdata/snapshot.json")
		require.NoError(t, err)
		defer client.Close()

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = client.State(canceled)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			path          string
			expectedError string
		}{
			{"testdata/missing.yaml", "failed to read chain snapshot"},
			{"testdata/invalid_genesis.yaml", "genesis_hash"},
			{"testdata/conflicting_metadata.yaml", "mutually exclusive"},
		}
		for _, tt := range tests {
			t.Run(tt.path, func(t *testing.T) {
				_, err := filechain.NewChainClient(tt.path)
				require.ErrorContains(t, err, tt.expectedError)
			})
		}
	})
}
