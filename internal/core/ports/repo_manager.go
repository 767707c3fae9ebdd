package ports

import "github.com/arkade-os/subsign/internal/core/domain"

type RepoManager interface {
	Transactions() domain.TransactionRepository
	Close()
}
