package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/internal/infrastructure/config"
	"github.com/printshop/backend/internal/infrastructure/lock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the coordination backends (aggregate locks and payment
// reference reservations) from configuration. A single Redis client is shared.
type Factory struct {
	redisConfig           config.RedisConfig
	salesConfig           config.SalesConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
	closers               []func() error
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether the reference store falls back to
// memory when Redis is unreachable. Locks never fall back.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, salesCfg config.SalesConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		salesConfig:           salesCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RedisClient returns the shared client, connecting on first use
func (f *Factory) RedisClient() (*redis.Client, error) {
	if !f.redisConfig.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}
	if f.client != nil {
		return f.client, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	f.client = client
	f.closers = append(f.closers, client.Close)
	return client, nil
}

// CreateIdempotencyStore returns the Redis store when Redis is enabled and
// reachable, otherwise the in-memory store if fallback is allowed.
func (f *Factory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	if f.redisConfig.Enabled {
		client, err := f.RedisClient()
		if err == nil {
			f.logger.Info("using Redis payment reference store")
			return NewRedisIdempotencyStore(client, DefaultReferencePrefix), nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for payment references but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory payment reference store. "+
			"Duplicate references across instances are then caught only by the database.",
			zap.Error(err),
		)
	}

	store := NewInMemoryIdempotencyStore(5 * time.Minute)
	f.closers = append(f.closers, store.Close)
	return store, nil
}

// CreateLocker returns the aggregate locker selected by sales.lock_backend
func (f *Factory) CreateLocker() (shared.Locker, error) {
	switch f.salesConfig.LockBackend {
	case "redis":
		client, err := f.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("redis lock backend unavailable: %w", err)
		}
		f.logger.Info("using Redis aggregate locks",
			zap.Duration("ttl", f.salesConfig.LockTTL),
			zap.Duration("wait", f.salesConfig.LockWait),
		)
		return lock.NewRedisLocker(client, f.salesConfig.LockTTL, f.salesConfig.LockWait,
			lock.WithLogger(f.logger)), nil
	case "memory", "":
		return lock.NewMemoryLocker(f.salesConfig.LockWait), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", f.salesConfig.LockBackend)
	}
}

// Close releases everything the factory created, newest first
func (f *Factory) Close() error {
	var firstErr error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	f.client = nil
	return firstErr
}
