package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that were already used (payment references, request keys).
type IdempotencyStore interface {
	// MarkProcessed marks a key as used with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been used
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key, used when the unit of work that marked it rolls back.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
