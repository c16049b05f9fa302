package cache

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps payment reference reservations in process
// memory. Reservations are not shared between instances, so it only fits
// single-instance deployments and tests.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time

	stop      context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store whose expired reservations are
// swept every sweepInterval until Close.
func NewInMemoryIdempotencyStore(sweepInterval time.Duration) *InMemoryIdempotencyStore {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &InMemoryIdempotencyStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
		stop:    cancel,
		done:    make(chan struct{}),
	}
	go s.sweep(ctx, sweepInterval)
	return s
}

// live reports whether key holds an unexpired reservation. Callers hold mu.
func (s *InMemoryIdempotencyStore) live(key string) bool {
	until, ok := s.expires[key]
	return ok && s.now().Before(until)
}

// MarkProcessed reserves key for ttl and reports whether this call won it
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(key) {
		return false, nil
	}
	s.expires[key] = s.now().Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key), nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expires, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper and waits for it. Later calls do nothing.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		s.stop()
		<-s.done
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweep(ctx context.Context, interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	maps.DeleteFunc(s.expires, func(_ string, until time.Time) bool {
		return !now.Before(until)
	})
}

// Size counts stored reservations, expired ones not yet swept included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
