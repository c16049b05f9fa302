// Package production holds the service job state machine: one job per order
// item that has to be printed, cut or finished before the order is ready.
package production

import (
	"fmt"
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
)

// StatusHistory is one append-only row of a job's status trail.
// FromStatus is nil only for the creation row.
type StatusHistory struct {
	ID           uint64        `gorm:"primaryKey;autoIncrement"`
	ServiceJobID uint64        `gorm:"not null;index"`
	FromStatus   *JobStatus    `gorm:"type:varchar(20)"`
	ToStatus     JobStatus     `gorm:"type:varchar(20);not null"`
	ChangedBy    shared.UserID `gorm:"not null"`
	Reason       *string       `gorm:"type:text"`
	CreatedAt    time.Time     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StatusHistory) TableName() string {
	return "service_status_history"
}

// Comment is a free-text note on a job. Comments are never edited.
type Comment struct {
	ID           uint64        `gorm:"primaryKey;autoIncrement"`
	ServiceJobID uint64        `gorm:"not null;index"`
	AuthorID     shared.UserID `gorm:"not null"`
	Body         string        `gorm:"type:text;not null"`
	IsSystem     bool          `gorm:"not null;default:false"`
	CreatedAt    time.Time     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Comment) TableName() string {
	return "service_job_comments"
}

// ServiceJob tracks the production of exactly one order item.
type ServiceJob struct {
	shared.BaseAggregateRoot
	JobNumber   string         `gorm:"type:varchar(30);not null;uniqueIndex"`
	OrderID     uint64         `gorm:"not null;index"`
	OrderItemID uint64         `gorm:"not null;uniqueIndex"`
	Status      JobStatus      `gorm:"type:varchar(20);not null;index"`
	AssignedTo  *shared.UserID `gorm:"index"`
	Priority    Priority       `gorm:"type:varchar(10);not null;default:'normal'"`
	Description string         `gorm:"type:varchar(500)"`
	DueDate     *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	DeliveredAt *time.Time
	ReworkCount int           `gorm:"not null;default:0"`
	CreatedBy   shared.UserID `gorm:"not null"`

	pendingHistory  []StatusHistory
	pendingComments []Comment
}

// TableName returns the table name for GORM
func (ServiceJob) TableName() string {
	return "service_jobs"
}

// NewServiceJob creates a PENDING job for an order item
func NewServiceJob(jobNumber string, orderID, orderItemID uint64, priority Priority, dueDate *time.Time,
	description string, createdBy shared.UserID, now time.Time) (*ServiceJob, error) {
	if strings.TrimSpace(jobNumber) == "" {
		return nil, shared.NewValidationError("INVALID_JOB_NUMBER", "Job number cannot be empty")
	}
	if orderID == 0 || orderItemID == 0 {
		return nil, shared.NewValidationError("ORDER_ITEM_REQUIRED", "A service job belongs to one order item")
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, shared.NewValidationError("INVALID_PRIORITY", "Priority must be low, normal, high or urgent")
	}
	if createdBy == 0 {
		return nil, shared.NewValidationError("ACTOR_REQUIRED", "Every job change needs a user")
	}
	job := &ServiceJob{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		JobNumber:         jobNumber,
		OrderID:           orderID,
		OrderItemID:       orderItemID,
		Status:            JobStatusPending,
		Priority:          priority,
		Description:       strings.TrimSpace(description),
		DueDate:           dueDate,
		CreatedBy:         createdBy,
	}
	job.pendingHistory = append(job.pendingHistory, StatusHistory{
		ToStatus:  JobStatusPending,
		ChangedBy: createdBy,
		CreatedAt: now,
	})
	return job, nil
}

// PendingHistory returns history rows not yet persisted
func (j *ServiceJob) PendingHistory() []StatusHistory {
	return j.pendingHistory
}

// PendingComments returns comments not yet persisted
func (j *ServiceJob) PendingComments() []Comment {
	return j.pendingComments
}

// ClearPending is called by the repository once history and comments are written
func (j *ServiceJob) ClearPending() {
	j.pendingHistory = nil
	j.pendingComments = nil
}

// IsOutstanding reports whether the job still blocks its order from being ready.
// Cancelled jobs do not block. A rejected job never completes, so its order can
// only be cancelled.
func (j *ServiceJob) IsOutstanding() bool {
	return j.Status != JobStatusCompleted && j.Status != JobStatusCancelled
}

// Accept takes a PENDING job into production. Without an assignee the actor takes it.
func (j *ServiceJob) Accept(actor shared.UserID, now time.Time) error {
	if err := j.transition(JobStatusAccepted, actor, nil, now); err != nil {
		return err
	}
	if j.AssignedTo == nil {
		self := actor
		j.AssignedTo = &self
	}
	return nil
}

// Assign hands the job to a user. From ACCEPTED this is the ASSIGNED transition;
// while ASSIGNED or IN_PROGRESS it reassigns without a status change and leaves a
// system comment.
func (j *ServiceJob) Assign(assignee, actor shared.UserID, now time.Time) error {
	if assignee == 0 {
		return shared.NewValidationError("ASSIGNEE_REQUIRED", "Assignee cannot be empty")
	}
	switch j.Status {
	case JobStatusAccepted:
		if err := j.transition(JobStatusAssigned, actor, nil, now); err != nil {
			return err
		}
		j.AssignedTo = &assignee
		return nil
	case JobStatusAssigned, JobStatusInProgress:
		if actor == 0 {
			return shared.NewValidationError("ACTOR_REQUIRED", "Every job change needs a user")
		}
		previous := "nobody"
		if j.AssignedTo != nil {
			if *j.AssignedTo == assignee {
				return nil
			}
			previous = "user " + j.AssignedTo.String()
		}
		j.AssignedTo = &assignee
		j.Touch(now)
		j.pendingComments = append(j.pendingComments, Comment{
			ServiceJobID: j.ID,
			AuthorID:     actor,
			Body:         fmt.Sprintf("Reassigned from %s to user %s", previous, assignee),
			IsSystem:     true,
			CreatedAt:    now,
		})
		return nil
	}
	return shared.NewDomainError(shared.KindInvalidTransition, "JOB_NOT_ASSIGNABLE",
		fmt.Sprintf("job %s cannot be assigned in %s status", j.JobNumber, j.Status)).
		WithDetail("service_job_id", j.ID).
		WithDetail("status", string(j.Status))
}

// Start begins work. started_at is stamped on the first entry only.
func (j *ServiceJob) Start(actor shared.UserID, now time.Time) error {
	if j.Status == JobStatusQAReview {
		return shared.NewValidationError("REWORK_REASON_REQUIRED", "Sending a job back from QA needs a reason")
	}
	if err := j.transition(JobStatusInProgress, actor, nil, now); err != nil {
		return err
	}
	if j.StartedAt == nil {
		started := now
		j.StartedAt = &started
	}
	return nil
}

// SubmitForReview hands finished work to QA
func (j *ServiceJob) SubmitForReview(actor shared.UserID, notes string, now time.Time) error {
	return j.transition(JobStatusQAReview, actor, optionalReason(notes), now)
}

// PassQA completes the job
func (j *ServiceJob) PassQA(actor shared.UserID, now time.Time) error {
	if err := j.transition(JobStatusCompleted, actor, nil, now); err != nil {
		return err
	}
	completed := now
	j.CompletedAt = &completed
	return nil
}

// Rework sends a job from QA back to IN_PROGRESS and counts the rework.
func (j *ServiceJob) Rework(actor shared.UserID, reason string, now time.Time) error {
	if j.Status != JobStatusQAReview {
		return j.invalidTransition(JobStatusInProgress)
	}
	r, err := requireReason(reason, "REWORK_REASON_REQUIRED", "Sending a job back from QA needs a reason")
	if err != nil {
		return err
	}
	j.ReworkCount++
	if err := j.transition(JobStatusInProgress, actor, r, now); err != nil {
		j.ReworkCount--
		return err
	}
	return nil
}

// Reject fails the job at QA for good
func (j *ServiceJob) Reject(actor shared.UserID, reason string, now time.Time) error {
	if !j.Status.CanTransitionTo(JobStatusRejected) {
		return j.invalidTransition(JobStatusRejected)
	}
	r, err := requireReason(reason, "REJECT_REASON_REQUIRED", "Rejecting a job needs a reason")
	if err != nil {
		return err
	}
	return j.transition(JobStatusRejected, actor, r, now)
}

// Cancel drops a job that has not been accepted yet
func (j *ServiceJob) Cancel(actor shared.UserID, reason string, now time.Time) error {
	if !j.Status.CanTransitionTo(JobStatusCancelled) {
		return j.invalidTransition(JobStatusCancelled)
	}
	r, err := requireReason(reason, "CANCEL_REASON_REQUIRED", "Cancelling a job needs a reason")
	if err != nil {
		return err
	}
	return j.transition(JobStatusCancelled, actor, r, now)
}

// IsStarted reports whether work has begun on a job that is not finished yet.
func (j *ServiceJob) IsStarted() bool {
	return j.Status != JobStatusPending && !j.Status.IsTerminal()
}

// Abandon stops started work because the order it belongs to was cancelled.
// It is the only way out of ACCEPTED, ASSIGNED, IN_PROGRESS and QA_REVIEW into
// CANCELLED and is never offered as a job status request.
func (j *ServiceJob) Abandon(actor shared.UserID, reason string, now time.Time) error {
	if !j.IsStarted() {
		return j.invalidTransition(JobStatusCancelled)
	}
	r, err := requireReason(reason, "CANCEL_REASON_REQUIRED", "Cancelling a job needs a reason")
	if err != nil {
		return err
	}
	return j.record(JobStatusCancelled, actor, r, now)
}

// TransitionTo dispatches an explicit status request to the matching operation.
func (j *ServiceJob) TransitionTo(target JobStatus, actor shared.UserID, reason string, now time.Time) error {
	switch target {
	case JobStatusAccepted:
		return j.Accept(actor, now)
	case JobStatusAssigned:
		if j.Status == JobStatusAccepted && j.AssignedTo != nil {
			return j.Assign(*j.AssignedTo, actor, now)
		}
		return shared.NewValidationError("ASSIGNEE_REQUIRED", "Use assign with a user to move a job to ASSIGNED")
	case JobStatusInProgress:
		if j.Status == JobStatusQAReview {
			return j.Rework(actor, reason, now)
		}
		return j.Start(actor, now)
	case JobStatusQAReview:
		return j.SubmitForReview(actor, reason, now)
	case JobStatusCompleted:
		return j.PassQA(actor, now)
	case JobStatusRejected:
		return j.Reject(actor, reason, now)
	case JobStatusCancelled:
		return j.Cancel(actor, reason, now)
	}
	return j.invalidTransition(target)
}

// AddComment posts a note on the job
func (j *ServiceJob) AddComment(author shared.UserID, body string, now time.Time) (*Comment, error) {
	if author == 0 {
		return nil, shared.NewValidationError("ACTOR_REQUIRED", "A comment needs an author")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, shared.NewValidationError("COMMENT_REQUIRED", "Comment cannot be empty")
	}
	j.pendingComments = append(j.pendingComments, Comment{
		ServiceJobID: j.ID,
		AuthorID:     author,
		Body:         body,
		CreatedAt:    now,
	})
	return &j.pendingComments[len(j.pendingComments)-1], nil
}

// MarkDelivered stamps delivery of a completed job when its order is released
func (j *ServiceJob) MarkDelivered(now time.Time) error {
	if j.Status != JobStatusCompleted {
		return shared.NewDomainError(shared.KindInvalidTransition, "JOB_NOT_COMPLETED",
			fmt.Sprintf("job %s is %s and cannot be delivered", j.JobNumber, j.Status)).
			WithDetail("service_job_id", j.ID)
	}
	if j.DeliveredAt != nil {
		return nil
	}
	delivered := now
	j.DeliveredAt = &delivered
	j.Touch(now)
	return nil
}

func (j *ServiceJob) invalidTransition(to JobStatus) error {
	return shared.NewInvalidTransitionError(AggregateType, j.ID, string(j.Status), string(to)).
		WithDetail("job_number", j.JobNumber)
}

func (j *ServiceJob) transition(to JobStatus, actor shared.UserID, reason *string, now time.Time) error {
	if !j.Status.CanTransitionTo(to) {
		return j.invalidTransition(to)
	}
	return j.record(to, actor, reason, now)
}

// record applies a status change and writes its history row and event
func (j *ServiceJob) record(to JobStatus, actor shared.UserID, reason *string, now time.Time) error {
	if actor == 0 {
		return shared.NewValidationError("ACTOR_REQUIRED", "Every job change needs a user")
	}
	from := j.Status
	j.Status = to
	j.Touch(now)
	j.pendingHistory = append(j.pendingHistory, StatusHistory{
		ServiceJobID: j.ID,
		FromStatus:   &from,
		ToStatus:     to,
		ChangedBy:    actor,
		Reason:       reason,
		CreatedAt:    now,
	})
	j.AddDomainEvent(NewStatusChangedEvent(j, from, to, actor))
	return nil
}

func requireReason(reason, code, message string) (*string, error) {
	r := strings.TrimSpace(reason)
	if r == "" {
		return nil, shared.NewValidationError(code, message)
	}
	return &r, nil
}

func optionalReason(reason string) *string {
	r := strings.TrimSpace(reason)
	if r == "" {
		return nil
	}
	return &r
}
