package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arkade-os/subsign/internal/core/domain"
	"github.com/arkade-os/subsign/internal/infrastructure/db/sqlite/sqlc/queries"
)

type transactionRepository struct {
	db      *sql.DB
	querier *queries.Queries
}

func NewTransactionRepository(config ...interface{}) (domain.TransactionRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open transaction repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &transactionRepository{
		db:      db,
		querier: queries.New(db),
	}, nil
}

func (r *transactionRepository) Add(ctx context.Context, tx domain.Transaction) error {
	err := r.querier.InsertSignedTx(ctx, queries.InsertSignedTxParams{
		ID:             tx.Id,
		Signer:         tx.Signer,
		Dest:           tx.Dest,
		Amount:         tx.Amount,
		Nonce:          int64(tx.Nonce),
		SpecVersion:    int64(tx.SpecVersion),
		Extensions:     joinList(tx.Extensions),
		MetadataMode:   tx.MetadataMode,
		MetadataDigest: tx.MetadataDigest,
		CallData:       tx.Call,
		Extra:          tx.Extra,
		Additional:     tx.Additional,
		SignerPayload:  tx.SignerPayload,
		Extrinsic:      tx.Extrinsic,
		CreatedAt:      tx.CreatedAt,
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction %s already exists", tx.Id)
	}
	if err != nil {
		return fmt.Errorf("failed to add transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.querier.SelectSignedTx(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	tx := toTransaction(row)
	return &tx, nil
}

func (r *transactionRepository) List(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.querier.SelectAllSignedTxs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, toTransaction(row))
	}
	return txs, nil
}

func (r *transactionRepository) Close() {
	// nolint:all
	r.db.Close()
}

func toTransaction(row queries.SignedTx) domain.Transaction {
	return domain.Transaction{
		Id:             row.ID,
		Signer:         row.Signer,
		Dest:           row.Dest,
		Amount:         row.Amount,
		Nonce:          uint64(row.Nonce),
		SpecVersion:    uint32(row.SpecVersion),
		Extensions:     splitList(row.Extensions),
		MetadataMode:   row.MetadataMode,
		MetadataDigest: row.MetadataDigest,
		Call:           row.CallData,
		Extra:          row.Extra,
		Additional:     row.Additional,
		SignerPayload:  row.SignerPayload,
		Extrinsic:      row.Extrinsic,
		CreatedAt:      row.CreatedAt,
	}
}
