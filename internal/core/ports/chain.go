package ports

import (
	"context"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
)

// ChainClient gives access to the chain state needed to build a transaction.
type ChainClient interface {
	// State returns a snapshot of the chain constants, runtime version and
	// metadata. Account is left empty.
	State(ctx context.Context) (*sublib.ClientState, error)
	// Account returns the account info of the given id.
	Account(ctx context.Context, id sublib.AccountID) (*sublib.AccountInfo, error)
	Close()
}
