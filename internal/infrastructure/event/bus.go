// Package event provides the in-process domain event bus and the handlers
// subscribed to it: the audit log and business metrics.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/internal/infrastructure/logger"
	"github.com/printshop/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrBusClosed is returned by Publish once Stop has been called
var ErrBusClosed = errors.New("event bus closed")

// InMemoryEventBus dispatches events synchronously to the handlers
// registered in-process. Events arrive after their transaction committed,
// so a failing handler is logged and never undoes the business change.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	closed   atomic.Bool
	inflight sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish hands each event to every matching handler in order
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	b.inflight.Add(1)
	defer b.inflight.Done()

	for _, event := range events {
		b.dispatch(ctx, event)
	}
	return nil
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	ctx, span := telemetry.StartSpan(ctx, "EventBus", "Publish",
		"event_type", event.EventType(),
		"aggregate_type", event.AggregateType(),
		"aggregate_id", event.AggregateID(),
	)
	defer span.End()

	log := b.logger.With(
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.Uint64("aggregate_id", event.AggregateID()),
	)
	if requestID := logger.RequestIDFrom(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	if traceID := logger.TraceID(ctx); traceID != "" {
		log = log.With(zap.String("trace_id", traceID))
	}

	for _, handler := range b.registry.HandlersFor(event.EventType()) {
		if err := b.handle(ctx, handler, event); err != nil {
			telemetry.RecordError(span, err)
			log.Error("handler failed to process event",
				zap.String("handler", fmt.Sprintf("%T", handler)),
				zap.Error(err),
			)
		}
	}
}

func (b *InMemoryEventBus) handle(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used; if those are empty too it receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Stop refuses new publishes and waits for in-flight ones to finish or ctx to end
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.closed.Store(true)

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
