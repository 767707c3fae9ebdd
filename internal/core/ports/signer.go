package ports

import (
	"context"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/arkade-os/subsign/pkg/sub-lib/extrinsic"
)

type SignerService interface {
	AccountID() sublib.AccountID
	Sign(ctx context.Context, payload []byte) (*extrinsic.Signature, error)
}
