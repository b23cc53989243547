package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore tracks request counts within a fixed window, used by the rate
// limit middleware.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounterStore implements CounterStore on Redis so limits hold across
// process restarts and replicas.
type RedisCounterStore struct {
	client redis.UniversalClient
}

var _ CounterStore = (*RedisCounterStore)(nil)

// NewRedisCounterStore constructs a Redis-backed counter store.
func NewRedisCounterStore(client redis.UniversalClient) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Incr bumps the counter for key and returns the new count. The window TTL is
// attached when the key is first created, giving fixed-window semantics.
func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr counter: %w", err)
	}
	return incr.Val(), nil
}
