package ecdsasigner

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/arkade-os/subsign/internal/core/ports"
	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/arkade-os/subsign/pkg/sub-lib/extrinsic"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/blake2b"
)

const (
	sigLen = 65

	// compactSigMagicOffset plus 4 for compressed keys is added to the
	// recovery id by SignCompact.
	compactSigMagicOffset = 27 + 4
)

type signer struct {
	key       *btcec.PrivateKey
	accountID sublib.AccountID
}

// NewSigner returns a secp256k1 signer for the given hex-encoded private key.
// The account id is the blake2b-256 hash of the compressed public key.
func NewSigner(privateKey string) (ports.SignerService, error) {
	buf, err := hex.DecodeString(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %s", err)
	}
	if len(buf) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid private key length %d", len(buf))
	}
	key, _ := btcec.PrivKeyFromBytes(buf)
	return &signer{key, AccountID(key.PubKey())}, nil
}

func AccountID(pubkey *btcec.PublicKey) sublib.AccountID {
	return blake2b.Sum256(pubkey.SerializeCompressed())
}

func (s *signer) AccountID() sublib.AccountID {
	return s.accountID
}

// Sign returns a recoverable signature in [r || s || v] format over the
// blake2b-256 hash of the payload.
func (s *signer) Sign(ctx context.Context, payload []byte) (*extrinsic.Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := blake2b.Sum256(payload)
	raw, err := ecdsa.SignCompact(s.key, hash[:], true)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %s", err)
	}

	sig, err := rawSigToSig(raw)
	if err != nil {
		return nil, err
	}
	return &extrinsic.Signature{Kind: extrinsic.SignatureEcdsa, Bytes: sig}, nil
}

// RecoverAccountID returns the account id of the key that signed payload.
func RecoverAccountID(payload []byte, sig []byte) (sublib.AccountID, error) {
	raw, err := sigToRawSig(sig)
	if err != nil {
		return sublib.AccountID{}, err
	}
	hash := blake2b.Sum256(payload)
	pubkey, _, err := ecdsa.RecoverCompact(raw, hash[:])
	if err != nil {
		return sublib.AccountID{}, fmt.Errorf("failed to recover public key: %s", err)
	}
	return AccountID(pubkey), nil
}

// raw sig has format [v || r || s] whereas the sig has format [r || s || v]
func rawSigToSig(raw []byte) ([]byte, error) {
	if len(raw) != sigLen {
		return nil, fmt.Errorf("invalid signature length %d", len(raw))
	}
	sig := make([]byte, sigLen)
	copy(sig, raw[1:])
	sig[sigLen-1] = raw[0] - compactSigMagicOffset
	return sig, nil
}

func sigToRawSig(sig []byte) ([]byte, error) {
	if len(sig) != sigLen {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}
	raw := make([]byte, sigLen)
	raw[0] = sig[sigLen-1] + compactSigMagicOffset
	copy(raw[1:], sig)
	return raw, nil
}
