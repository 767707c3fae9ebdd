package ports

import (
	"context"

	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/arkade-os/subsign/pkg/sub-lib/digest"
)

type DigestProvider interface {
	Digest(ctx context.Context, metadata []byte, info digest.ExtraInfo) (sublib.Hash, error)
}

// DigestCache stores metadata digests by a key derived from all of their
// inputs. Get returns nil if the key is unknown.
type DigestCache interface {
	Get(ctx context.Context, key string) (*sublib.Hash, error)
	Set(ctx context.Context, key string, digest sublib.Hash) error
	Close()
}
