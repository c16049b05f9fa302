package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix = "printshop:"
	retryInterval    = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements shared.Locker with SET NX PX so every instance
// sharing the Redis server sees the same locks.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
	logger    *zap.Logger
}

// RedisLockerOption configures a RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithKeyPrefix sets the prefix placed before every lock key
func WithKeyPrefix(prefix string) RedisLockerOption {
	return func(l *RedisLocker) {
		l.keyPrefix = prefix
	}
}

// WithLogger sets the logger used for release failures
func WithLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a locker. ttl bounds how long a crashed holder keeps
// a key; wait bounds how long Acquire retries a busy key.
func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
		wait:      wait,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire implements shared.Locker
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	var deadline <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, shared.NewLockTimeoutError(key)
		case <-time.After(retryInterval):
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	return func() {
		// The caller's context may already be cancelled; release regardless.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock",
				zap.String("key", redisKey),
				zap.Error(err),
			)
		}
	}
}

var _ shared.Locker = (*RedisLocker)(nil)
