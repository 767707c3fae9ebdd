package extrinsic_test

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/arkade-os/subsign/pkg/sub-lib/extrinsic"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func account(b byte) sublib.AccountID {
	var id sublib.AccountID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestSignerPayload(t *testing.T) {
	t.Run("short payload is signed as is", func(t *testing.T) {
		payload := extrinsic.SignerPayload([]byte{0x05, 0x00}, []byte{0x1c}, []byte{0x01, 0x02})
		require.Equal(t, []byte{0x05, 0x00, 0x1c, 0x01, 0x02}, payload)

		exact := bytes.Repeat([]byte{0x01}, 256)
		require.Equal(t, exact, extrinsic.SignerPayload(exact[:100], exact[100:200], exact[200:]))
	})

	t.Run("long payload is hashed", func(t *testing.T) {
		call := bytes.Repeat([]byte{0x01}, 200)
		additional := bytes.Repeat([]byte{0x02}, 57)
		payload := extrinsic.SignerPayload(call, nil, additional)

		expected := blake2b.Sum256(append(append([]byte(nil), call...), additional...))
		require.Equal(t, expected[:], payload)
	})
}

func TestTransferAllowDeath(t *testing.T) {
	call, err := extrinsic.TransferAllowDeath(
		extrinsic.DefaultTransferAllowDeath, account(0x22), big.NewInt(10_000),
	)
	require.NoError(t, err)
	require.Equal(
		t, "0500"+"00"+hex.EncodeToString(bytes.Repeat([]byte{0x22}, 32))+"419c",
		hex.EncodeToString(call),
	)

	_, err = extrinsic.TransferAllowDeath(extrinsic.DefaultTransferAllowDeath, account(0x22), nil)
	require.Error(t, err)
	_, err = extrinsic.TransferAllowDeath(
		extrinsic.DefaultTransferAllowDeath, account(0x22), big.NewInt(-1),
	)
	require.Error(t, err)
}

func TestExtrinsic(t *testing.T) {
	call, err := extrinsic.TransferAllowDeath(
		extrinsic.DefaultTransferAllowDeath, account(0x22), big.NewInt(10_000),
	)
	require.NoError(t, err)
	extra := []byte{0x00, 0x1c, 0x00, 0x00, 0x00, 0x01}
	sig := extrinsic.Signature{
		Kind: extrinsic.SignatureEcdsa, Bytes: bytes.Repeat([]byte{0x02}, 65),
	}

	t.Run("encode", func(t *testing.T) {
		encoded, err := extrinsic.Encode(account(0x01), sig, extra, call)
		require.NoError(t, err)

		// 1 version + 33 address + 66 signature + 6 extra + 37 call = 143
		require.Equal(t, []byte{0x3d, 0x02}, encoded[:2])
		require.Equal(t, byte(0x84), encoded[2])
		require.Equal(t, byte(0x00), encoded[3])
		require.Equal(t, bytes.Repeat([]byte{0x01}, 32), encoded[4:36])
		require.Equal(t, byte(0x02), encoded[36])
		require.Equal(t, sig.Bytes, encoded[37:102])
		require.Equal(t, extra, encoded[102:108])
		require.Equal(t, call, encoded[108:])

		decoded, err := extrinsic.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, account(0x01), decoded.Signer)
		require.Equal(t, sig, decoded.Signature)
		require.Equal(t, append(append([]byte(nil), extra...), call...), decoded.Body)
	})

	t.Run("invalid signature", func(t *testing.T) {
		_, err := extrinsic.Encode(account(0x01), extrinsic.Signature{
			Kind: extrinsic.SignatureSr25519, Bytes: make([]byte, 65),
		}, extra, call)
		require.ErrorContains(t, err, "invalid sr25519 signature length 65")

		_, err = extrinsic.Encode(account(0x01), extrinsic.Signature{Kind: 7}, extra, call)
		require.ErrorContains(t, err, "unknown signature kind")
	})

	t.Run("malformed", func(t *testing.T) {
		encoded, err := extrinsic.Encode(account(0x01), sig, extra, call)
		require.NoError(t, err)

		unsigned := append([]byte(nil), encoded...)
		unsigned[2] = 0x04

		badAddress := append([]byte(nil), encoded...)
		badAddress[3] = 0x01

		badSig := append([]byte(nil), encoded...)
		badSig[36] = 0x09

		tests := []struct {
			name string
			data []byte
		}{
			{"empty", nil},
			{"length mismatch", encoded[:len(encoded)-1]},
			{"unsigned", unsigned},
			{"address kind", badAddress},
			{"signature kind", badSig},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := extrinsic.Decode(tt.data)
				require.ErrorIs(t, err, extrinsic.ErrMalformedExtrinsic)
			})
		}
	})
}
