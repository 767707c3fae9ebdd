package application

import (
	"context"
	"math/big"

	"github.com/arkade-os/subsign/internal/core/domain"
	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/arkade-os/subsign/pkg/errors"
	"github.com/arkade-os/subsign/pkg/sub-lib/extension"
)

type Service interface {
	BuildTransaction(ctx context.Context, req BuildRequest) (*domain.Transaction, errors.Error)
	ComputeDigest(ctx context.Context) (*DigestInfo, errors.Error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, errors.Error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, errors.Error)
	DecodeTransaction(ctx context.Context, tx string) (*DecodedTransaction, errors.Error)
	Close()
}

// BuildRequest describes a balance transfer. Nil fields keep the defaults of
// the extension chain: chain-reported nonce, no tip, immortal era.
type BuildRequest struct {
	Dest          sublib.AccountID
	Amount        *big.Int
	Nonce         *uint64
	Tip           *big.Int
	AssetID       *uint32
	MortalPeriod  uint64
	CheckMetadata bool
}

type DigestInfo struct {
	Digest      string
	SpecName    string
	SpecVersion uint32
	Base58      uint16
	TokenSymbol string
	Decimals    uint8
}

type DecodedTransaction struct {
	Signer        string
	SignatureKind string
	Extensions    []extension.DecodedExtension
	MetadataMode  string
	Call          string
}
