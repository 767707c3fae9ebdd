package ecdsasigner_test

import (
	"context"
	"testing"

	ecdsasigner "github.com/arkade-os/subsign/internal/infrastructure/signer/ecdsa"
	"github.com/arkade-os/subsign/pkg/sub-lib/extrinsic"
	"github.com/stretchr/testify/require"
)

const testKey = "0x0101010101010101010101010101010101010101010101010101010101010101"

func TestSigner(t *testing.T) {
	signer, err := ecdsasigner.NewSigner(testKey)
	require.NoError(t, err)

	other, err := ecdsasigner.NewSigner(
		"0202020202020202020202020202020202020202020202020202020202020202",
	)
	require.NoError(t, err)
	require.NotEqual(t, signer.AccountID(), other.AccountID())

	payloads := [][]byte{
		{},
		{0x05, 0x00, 0x1c},
		make([]byte, 32),
	}
	for _, payload := range payloads {
		sig, err := signer.Sign(context.Background(), payload)
		require.NoError(t, err)
		require.Equal(t, extrinsic.SignatureEcdsa, sig.Kind)
		require.NoError(t, sig.Validate())
		require.LessOrEqual(t, sig.Bytes[64], byte(1))

		// deterministic signatures (RFC6979)
		again, err := signer.Sign(context.Background(), payload)
		require.NoError(t, err)
		require.Equal(t, sig, again)

		id, err := ecdsasigner.RecoverAccountID(payload, sig.Bytes)
		require.NoError(t, err)
		require.Equal(t, signer.AccountID(), id)
	}

	t.Run("invalid keys", func(t *testing.T) {
		_, err := ecdsasigner.NewSigner("zz")
		require.Error(t, err)
		_, err = ecdsasigner.NewSigner("0101")
		require.ErrorContains(t, err, "invalid private key length")
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := signer.Sign(ctx, []byte{0x01})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid signature", func(t *testing.T) {
		_, err := ecdsasigner.RecoverAccountID([]byte{0x01}, make([]byte, 64))
		require.Error(t, err)
	})
}
