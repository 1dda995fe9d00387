package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix    = "incident-lock:"
	lockTTL          = 30 * time.Second
	lockRetryDelay   = 50 * time.Millisecond
	lockAcquireLimit = 10 * time.Second
)

// releaseScript deletes the lock only when the token still matches, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisKeyLocker serializes ticket updates per incident id across replicas
// using SET NX PX. It implements lifecycle.KeyLocker.
type RedisKeyLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisKeyLocker wraps a connected client.
func NewRedisKeyLocker(client *redis.Client, logger *zap.Logger) *RedisKeyLocker {
	return &RedisKeyLocker{client: client, logger: logger}
}

// Lock acquires the lock for key, retrying until the context expires or the
// acquire limit is hit. The returned function releases the lock.
func (l *RedisKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := lockKeyPrefix + key
	token := uuid.NewString()

	deadline := time.Now().Add(lockAcquireLimit)
	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire lock %s: timed out", key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	return func() {
		if err := releaseScript.Run(context.Background(), l.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("failed to release incident lock",
				zap.String("key", key), zap.Error(err))
		}
	}, nil
}
