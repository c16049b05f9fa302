package production

import "github.com/printshop/backend/internal/domain/shared"

// AggregateType is the aggregate type name for service jobs
const AggregateType = "ServiceJob"

// EventTypeStatusChanged is published on every job transition
const EventTypeStatusChanged = "service_job.status_changed"

// StatusChangedEvent is raised when a service job changes status
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	JobNumber   string        `json:"job_number"`
	OrderID     uint64        `json:"order_id"`
	FromStatus  JobStatus     `json:"from_status"`
	ToStatus    JobStatus     `json:"to_status"`
	ChangedBy   shared.UserID `json:"changed_by"`
	ReworkCount int           `json:"rework_count"`
}

// NewStatusChangedEvent creates a StatusChangedEvent
func NewStatusChangedEvent(j *ServiceJob, from, to JobStatus, actor shared.UserID) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeStatusChanged, AggregateType, j.ID, j.UpdatedAt),
		JobNumber:       j.JobNumber,
		OrderID:         j.OrderID,
		FromStatus:      from,
		ToStatus:        to,
		ChangedBy:       actor,
		ReworkCount:     j.ReworkCount,
	}
}
