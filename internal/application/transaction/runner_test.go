package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeScope struct {
	calls     int
	commitErr error
}

func (s *fakeScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.calls++
	if err := fn(nil); err != nil {
		return err
	}
	return s.commitErr
}

type recordingLocker struct {
	mu       sync.Mutex
	acquired []string
	released []string
	failOn   string
}

func (l *recordingLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if key == l.failOn {
		return nil, shared.NewLockTimeoutError(key)
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released = append(l.released, key)
	}, nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type bufferedAggregate struct {
	shared.BaseAggregateRoot
}

func newEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Order", 1)
	return &e
}

func TestRunner_Run(t *testing.T) {
	fixed := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	t.Run("locks in sorted order and releases in reverse", func(t *testing.T) {
		locker := &recordingLocker{}
		runner := NewRunner(&fakeScope{}, locker, nil, nil)

		err := runner.Run(context.Background(), "op", []string{"lock:Order:2", "lock:Invoice:9", "lock:Order:2"},
			func(context.Context, *Work) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, []string{"lock:Invoice:9", "lock:Order:2"}, locker.acquired)
		assert.Equal(t, []string{"lock:Order:2", "lock:Invoice:9"}, locker.released)
	})

	t.Run("busy lock aborts before the transaction", func(t *testing.T) {
		scope := &fakeScope{}
		locker := &recordingLocker{failOn: "lock:Order:2"}
		runner := NewRunner(scope, locker, nil, nil)

		err := runner.Run(context.Background(), "op", []string{"lock:Order:2", "lock:Invoice:1"},
			func(context.Context, *Work) error { return nil })
		assert.True(t, shared.IsRetryable(err))
		assert.Zero(t, scope.calls)
		assert.Equal(t, []string{"lock:Invoice:1"}, locker.released)
	})

	t.Run("events are published after commit", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 2 && events[0].EventType() == "order.created" && events[1].EventType() == "order.status_changed"
		})).Return(nil).Once()

		runner := NewRunner(&fakeScope{}, nil, pub, nil)
		runner.SetClock(func() time.Time { return fixed })

		agg := &bufferedAggregate{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
		agg.AddDomainEvent(newEvent("order.status_changed"))

		err := runner.Run(context.Background(), "op", nil, func(_ context.Context, w *Work) error {
			assert.Equal(t, fixed, w.Now)
			w.Raise(newEvent("order.created"))
			w.Collect(agg)
			return nil
		})
		require.NoError(t, err)
		assert.Empty(t, agg.GetDomainEvents())
		pub.AssertExpectations(t)
	})

	t.Run("failed body publishes nothing", func(t *testing.T) {
		pub := &mockPublisher{}
		runner := NewRunner(&fakeScope{}, nil, pub, nil)
		boom := shared.NewValidationError("INVALID_QUANTITY", "bad")

		err := runner.Run(context.Background(), "op", nil, func(_ context.Context, w *Work) error {
			w.Raise(newEvent("order.created"))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("failed commit publishes nothing", func(t *testing.T) {
		pub := &mockPublisher{}
		runner := NewRunner(&fakeScope{commitErr: errors.New("disk full")}, nil, pub, nil)

		err := runner.Run(context.Background(), "op", nil, func(_ context.Context, w *Work) error {
			w.Raise(newEvent("order.created"))
			return nil
		})
		assert.EqualError(t, err, "disk full")
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("publish failure does not fail the unit of work", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus closed")).Once()
		runner := NewRunner(&fakeScope{}, nil, pub, nil)

		err := runner.Run(context.Background(), "op", nil, func(_ context.Context, w *Work) error {
			w.Raise(newEvent("payment.recorded"))
			return nil
		})
		assert.NoError(t, err)
		pub.AssertExpectations(t)
	})
}

func TestRetry(t *testing.T) {
	conflict := shared.NewConcurrencyConflictError("order", 1)

	t.Run("retries conflicts until success", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return conflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 2, time.Millisecond, func() error {
			calls++
			return conflict
		})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 2, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 5, time.Millisecond, func() error {
			calls++
			return shared.NewValidationError("INVALID_AMOUNT", "zero")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, 3, time.Hour, func() error { return conflict })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
