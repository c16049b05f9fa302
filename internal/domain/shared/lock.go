package shared

import (
	"context"
	"fmt"
)

// Locker serializes work on one aggregate across requests and processes.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done. A lock that
	// cannot be obtained in time is reported as a concurrency conflict.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// AggregateLockKey builds the lock key for an aggregate instance.
func AggregateLockKey(aggregateType string, id uint64) string {
	return fmt.Sprintf("lock:%s:%d", aggregateType, id)
}

// NewLockTimeoutError reports an aggregate lock that stayed busy for longer
// than the caller was willing to wait.
func NewLockTimeoutError(key string) *DomainError {
	return NewDomainError(KindConcurrencyConflict, "LOCK_TIMEOUT",
		fmt.Sprintf("%s is busy, try again", key)).
		WithDetail("lock_key", key)
}
