package shared

import "context"

// EventHandler reacts to published domain events. EventTypes is consulted
// when the handler is subscribed without explicit types; an empty result
// subscribes it to every event.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher delivers events after the transaction that raised them
// has committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is an EventPublisher that handlers can attach to and detach from
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}
