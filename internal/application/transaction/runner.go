package transaction

import (
	"context"
	"sort"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/printshop/backend/internal/application"

// EventSource is an aggregate that buffers domain events until its unit of work commits.
type EventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// Work is handed to a unit of work. Events recorded on it are published after commit.
type Work struct {
	Repos  TransactionalRepositories
	Now    time.Time
	events []shared.DomainEvent
}

// Collect takes the buffered events of saved aggregates. Call it after Save so
// the events carry the stored IDs.
func (w *Work) Collect(sources ...EventSource) {
	for _, src := range sources {
		w.events = append(w.events, src.GetDomainEvents()...)
		src.ClearDomainEvents()
	}
}

// Raise records events built by the caller, such as creation events.
func (w *Work) Raise(events ...shared.DomainEvent) {
	w.events = append(w.events, events...)
}

// Runner executes units of work. It serialises writers through the locker,
// runs the body in one transaction and publishes the collected events once the
// transaction has committed. A failed publish is logged, never returned: the
// state change is already durable.
type Runner struct {
	scope     Scope
	locker    shared.Locker
	publisher shared.EventPublisher
	logger    *zap.Logger
	clock     func() time.Time
}

// NewRunner creates a Runner. locker and publisher may be nil.
func NewRunner(scope Scope, locker shared.Locker, publisher shared.EventPublisher, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		scope:     scope,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
		clock:     time.Now,
	}
}

// SetClock replaces the time source
func (r *Runner) SetClock(clock func() time.Time) {
	r.clock = clock
}

// SetEventPublisher sets the event publisher for cross-context integration
func (r *Runner) SetEventPublisher(publisher shared.EventPublisher) {
	r.publisher = publisher
}

// Now returns the current time of the runner's clock
func (r *Runner) Now() time.Time {
	return r.clock()
}

// Logger returns the runner's logger
func (r *Runner) Logger() *zap.Logger {
	return r.logger
}

// Run executes fn as one unit of work named op, holding the locks for keys.
// Keys are taken in sorted order so two units locking the same aggregates
// cannot deadlock.
func (r *Runner) Run(ctx context.Context, op string, keys []string, fn func(ctx context.Context, w *Work) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.StringSlice("printshop.lock_keys", keys))

	release, err := r.lock(ctx, keys)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer release()

	w := &Work{Now: r.clock()}
	err = r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		w.Repos = repos
		w.events = w.events[:0]
		return fn(ctx, w)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	r.publish(ctx, op, w.events)
	return nil
}

func (r *Runner) lock(ctx context.Context, keys []string) (func(), error) {
	if r.locker == nil || len(keys) == 0 {
		return func() {}, nil
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	var prev string
	for i, key := range sorted {
		if i > 0 && key == prev {
			continue
		}
		prev = key
		release, err := r.locker.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

func (r *Runner) publish(ctx context.Context, op string, events []shared.DomainEvent) {
	if r.publisher == nil || len(events) == 0 {
		return
	}
	if err := r.publisher.Publish(ctx, events...); err != nil {
		r.logger.Error("failed to publish domain events",
			zap.String("operation", op),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}

// Retry runs fn up to attempts times while it fails with a retryable error,
// waiting backoff, then twice as long, between tries. Only idempotent
// operations may be retried this way.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !shared.IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
