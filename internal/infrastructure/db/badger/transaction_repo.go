package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/arkade-os/subsign/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const transactionStoreDir = "transactions"

type transactionRepository struct {
	store *badgerhold.Store
}

func NewTransactionRepository(config ...interface{}) (domain.TransactionRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, transactionStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction store: %s", err)
	}

	return &transactionRepository{store}, nil
}

func (r *transactionRepository) Add(ctx context.Context, tx domain.Transaction) error {
	err := r.store.Insert(tx.Id, &tx)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("transaction %s already exists", tx.Id)
	}
	attempts := 1
	for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
		time.Sleep(100 * time.Millisecond)
		err = r.store.Insert(tx.Id, &tx)
		attempts++
	}
	return err
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := r.store.Get(id, &tx)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) List(ctx context.Context) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := r.store.Find(&txs, nil); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].CreatedAt == txs[j].CreatedAt {
			return txs[i].Id < txs[j].Id
		}
		return txs[i].CreatedAt > txs[j].CreatedAt
	})
	return txs, nil
}

func (r *transactionRepository) Close() {
	// nolint:all
	r.store.Close()
}
