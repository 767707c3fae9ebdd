package inmemorydigestcache

import (
	"context"
	"sync"

	"github.com/arkade-os/subsign/internal/core/ports"
	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
)

type digestCache struct {
	lock    sync.RWMutex
	digests map[string]sublib.Hash
}

func NewDigestCache() ports.DigestCache {
	return &digestCache{
		digests: make(map[string]sublib.Hash),
	}
}

func (c *digestCache) Get(_ context.Context, key string) (*sublib.Hash, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	d, ok := c.digests[key]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (c *digestCache) Set(_ context.Context, key string, digest sublib.Hash) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.digests[key] = digest
	return nil
}

func (c *digestCache) Close() {}
