package tasks

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// RedisLocker implements advisory period locks with SET NX and a TTL. A
// crashed holder never wedges a period: the key expires and the next
// generation attempt proceeds.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a period locker backed by the given Redis client.
func NewRedisLocker(client *redis.Client) interfaces.PeriodLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the named lock for at most ttl. Returns false without error
// when another holder has it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "failed to acquire lock %s", key)
	}
	return ok, nil
}

// Release drops the named lock. Releasing a lock that already expired is not
// an error.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to release lock %s", key)
	}
	return nil
}
