// Package lock serialises long-running jobs across API instances with redis locks.
package lock

import (
	"context"
	"errors"
	"time"

	"restaurant-pos/internal/apperr"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const KeyBulkPrice = "lock:bulk-price"

type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Obtain takes key for ttl without retrying. A held lock surfaces as a Conflict.
// The returned release func is safe to call once the job finishes.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lk, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperr.Conflict("another job holds %s, try again later", key)
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lk.Release(context.Background())
	}, nil
}
