package shared

import "time"

// BaseAggregateRoot is embedded by every aggregate that is saved under an
// optimistic version check. Domain methods buffer events here; the unit of
// work drains the buffer once the save succeeded.
type BaseAggregateRoot struct {
	BaseEntity
	Version int           `gorm:"not null;default:1"`
	pending []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return NewBaseAggregateRootAt(time.Now())
}

// NewBaseAggregateRootAt starts a new aggregate at version 1 created at now
func NewBaseAggregateRootAt(now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntityAt(now), Version: 1}
}

// GetVersion returns the version the aggregate was loaded or created with
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// BeginVersionedWrite bumps the in-memory version and returns the one the
// stored row must still carry for the write to go through. Pass it to
// AbortVersionedWrite if the write does not happen.
func (a *BaseAggregateRoot) BeginVersionedWrite() (expected int) {
	expected = a.Version
	a.Version++
	return expected
}

// AbortVersionedWrite restores the version returned by BeginVersionedWrite.
func (a *BaseAggregateRoot) AbortVersionedWrite(expected int) {
	a.Version = expected
}

// AddDomainEvent buffers an event until the unit of work collects it
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the buffered events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents empties the buffer
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
