package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact about an aggregate that subscribers learn of after
// the change committed.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uint64
	AggregateType() string
}

// BaseDomainEvent carries the envelope every event shares. Concrete events
// embed it and add their payload.
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AggID     uint64    `json:"aggregate_id"`
	AggType   string    `json:"aggregate_type"`
}

func (e BaseDomainEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseDomainEvent) EventType() string     { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseDomainEvent) AggregateID() uint64   { return e.AggID }
func (e BaseDomainEvent) AggregateType() string { return e.AggType }

// NewBaseDomainEvent stamps the event with the wall clock.
func NewBaseDomainEvent(eventType, aggType string, aggID uint64) BaseDomainEvent {
	return NewBaseDomainEventAt(eventType, aggType, aggID, time.Now())
}

// NewBaseDomainEventAt stamps the event with the time the aggregate changed,
// so events follow the clock the unit of work ran with.
func NewBaseDomainEventAt(eventType, aggType string, aggID uint64, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		AggID:     aggID,
		AggType:   aggType,
	}
}
