package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "idempotency:"

// IdempotencyCache implements ports.IdempotencyCache using Redis. It only
// short-circuits replays; the ledger's unique reference stays authoritative.
type IdempotencyCache struct {
	client goredis.Cmdable
	prefix string
}

// NewIdempotencyCache creates a Redis-backed idempotency cache. An empty
// prefix selects "idempotency:".
func NewIdempotencyCache(client goredis.Cmdable, prefix string) *IdempotencyCache {
	if prefix == "" {
		prefix = defaultIdempotencyPrefix
	}
	return &IdempotencyCache{client: client, prefix: prefix}
}

// Get returns the cached result for key, or nil when there is none.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis idempotency get %q: %w", key, err)
	}
	return val, nil
}

// Set stores value under key unless a result is already cached. The first
// committed outcome for a reference is the one replays must see.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.SetNX(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set %q: %w", key, err)
	}
	return nil
}
