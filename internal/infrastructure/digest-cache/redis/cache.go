package redisdigestcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arkade-os/subsign/internal/core/ports"
	sublib "github.com/arkade-os/subsign/pkg/sub-lib"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const digestKeyPrefix = "digest"

type digestCache struct {
	rdb          *redis.Client
	ttl          time.Duration
	numOfRetries int
	retryDelay   time.Duration
}

// NewDigestCache returns a cache shared by every process connected to the
// same redis. A zero ttl keeps the entries forever.
func NewDigestCache(rdb *redis.Client, ttl time.Duration, numOfRetries int) ports.DigestCache {
	if numOfRetries <= 0 {
		numOfRetries = 1
	}
	return &digestCache{
		rdb:          rdb,
		ttl:          ttl,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (c *digestCache) Get(ctx context.Context, key string) (*sublib.Hash, error) {
	buf, err := c.rdb.Get(ctx, digestKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(buf) != sublib.HashSize {
		return nil, fmt.Errorf("invalid cached digest length %d", len(buf))
	}
	var d sublib.Hash
	copy(d[:], buf)
	return &d, nil
}

func (c *digestCache) Set(ctx context.Context, key string, digest sublib.Hash) error {
	var err error
	for i := 0; i < c.numOfRetries; i++ {
		if err = c.rdb.Set(ctx, digestKey(key), digest[:], c.ttl).Err(); err == nil {
			return nil
		}
		time.Sleep(c.retryDelay)
	}
	return fmt.Errorf("failed to store digest after max number of retries: %v", err)
}

func (c *digestCache) Close() {
	if err := c.rdb.Close(); err != nil {
		log.WithError(err).Warn("failed to close redis client")
	}
}

func digestKey(key string) string {
	return fmt.Sprintf("%s:%s", digestKeyPrefix, key)
}
