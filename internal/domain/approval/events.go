package approval

import "github.com/printshop/backend/internal/domain/shared"

// EventTypeResolved is published when an approval request is approved or rejected
const EventTypeResolved = "approval.resolved"

// ResolvedEvent is raised when a request leaves pending
type ResolvedEvent struct {
	shared.BaseDomainEvent
	RequestType RequestType   `json:"request_type"`
	Status      Status        `json:"status"`
	OrderID     *uint64       `json:"order_id,omitempty"`
	ApprovedBy  shared.UserID `json:"approved_by"`
}

// NewResolvedEvent creates a ResolvedEvent
func NewResolvedEvent(r *Request) *ResolvedEvent {
	var approver shared.UserID
	if r.ApprovedBy != nil {
		approver = *r.ApprovedBy
	}
	return &ResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeResolved, AggregateType, r.ID, r.UpdatedAt),
		RequestType:     r.Type,
		Status:          r.Status,
		OrderID:         r.OrderID,
		ApprovedBy:      approver,
	}
}
