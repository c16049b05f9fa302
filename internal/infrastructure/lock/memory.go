// Package lock provides shared.Locker implementations: an in-process
// locker for single-instance deployments and a Redis locker for fleets.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
)

// MemoryLocker serialises work per key inside one process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

// slot is a one-token semaphore plus the number of goroutines holding or
// waiting for it, so idle keys can be dropped.
type slot struct {
	token chan struct{}
	refs  int
}

// NewMemoryLocker creates a locker. wait bounds how long Acquire blocks; zero
// means until ctx is done.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		slots: make(map[string]*slot),
		wait:  wait,
	}
}

// Acquire implements shared.Locker
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.ref(key)

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case s.token <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, shared.NewLockTimeoutError(key)
		}
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.token
			l.unref(key, s)
		})
	}, nil
}

func (l *MemoryLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{token: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Len returns the number of keys currently held or waited on
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ shared.Locker = (*MemoryLocker)(nil)
