package domain

import "context"

type TransactionRepository interface {
	Add(ctx context.Context, tx Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	// List returns the stored transactions, most recent first.
	List(ctx context.Context) ([]Transaction, error)
	Close()
}
