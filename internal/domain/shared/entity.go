package shared

import (
	"strconv"
	"time"
)

// UserID references a user managed outside this service (login/session are external).
// Fields holding one are named by role: CreatedBy, ApprovedBy, ChangedBy, ...
type UserID uint64

// String formats the id for logs and error details
func (u UserID) String() string {
	return strconv.FormatUint(uint64(u), 10)
}

// BaseEntity holds the key and timestamps of a stored row. IDs come from the
// database on insert; timestamps come from the caller's clock.
type BaseEntity struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID, zero until stored
func (e *BaseEntity) GetID() uint64 {
	return e.ID
}

// Touch records a change at now
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// NewBaseEntity creates an unsaved entity stamped with the wall clock
func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now())
}

// NewBaseEntityAt creates an unsaved entity created at now
func NewBaseEntityAt(now time.Time) BaseEntity {
	return BaseEntity{CreatedAt: now, UpdatedAt: now}
}
