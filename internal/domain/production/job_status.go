package production

// JobStatus represents the status of a service job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusAccepted   JobStatus = "ACCEPTED"
	JobStatusAssigned   JobStatus = "ASSIGNED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusQAReview   JobStatus = "QA_REVIEW"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusRejected   JobStatus = "REJECTED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// IsValid checks if the status is a valid JobStatus
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusAccepted, JobStatusAssigned, JobStatusInProgress,
		JobStatusQAReview, JobStatusCompleted, JobStatusRejected, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the job can no longer change status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusRejected || s == JobStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// Nothing leads back to PENDING.
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	switch s {
	case JobStatusPending:
		return target == JobStatusAccepted || target == JobStatusCancelled
	case JobStatusAccepted:
		return target == JobStatusAssigned || target == JobStatusInProgress
	case JobStatusAssigned:
		return target == JobStatusInProgress
	case JobStatusInProgress:
		return target == JobStatusQAReview
	case JobStatusQAReview:
		return target == JobStatusCompleted || target == JobStatusInProgress || target == JobStatusRejected
	}
	return false
}

// Priority orders the production queue
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
