//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/internal/infrastructure/lock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisBackends(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("reference reservation", func(t *testing.T) {
		store := NewRedisIdempotencyStore(client, "")

		ok, err := store.MarkProcessed(ctx, "TXN-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.MarkProcessed(ctx, "TXN-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		processed, err := store.IsProcessed(ctx, "TXN-1")
		require.NoError(t, err)
		assert.True(t, processed)

		require.NoError(t, store.Release(ctx, "TXN-1"))
		processed, err = store.IsProcessed(ctx, "TXN-1")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("aggregate lock", func(t *testing.T) {
		locker := lock.NewRedisLocker(client, 5*time.Second, 100*time.Millisecond)
		key := shared.AggregateLockKey("Order", 42)

		release, err := locker.Acquire(ctx, key)
		require.NoError(t, err)

		_, err = locker.Acquire(ctx, key)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

		release()
		release2, err := locker.Acquire(ctx, key)
		require.NoError(t, err)
		release2()
	})

	t.Run("expired lock is not released by its old holder", func(t *testing.T) {
		locker := lock.NewRedisLocker(client, 50*time.Millisecond, time.Second)
		key := "lock:Invoice:7"

		stale, err := locker.Acquire(ctx, key)
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)

		fresh, err := lock.NewRedisLocker(client, 5*time.Second, time.Second).Acquire(ctx, key)
		require.NoError(t, err)
		stale()

		exists, err := client.Exists(ctx, "printshop:"+key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
		fresh()
	})
}
