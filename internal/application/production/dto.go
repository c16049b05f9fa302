package production

import (
	"time"

	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
)

// AssignJobRequest represents a request to hand a job to a user
type AssignJobRequest struct {
	AssigneeID shared.UserID `json:"assignee_id" validate:"required"`
}

// UpdateJobStatusRequest represents a request to move a job. Reason is
// required for rework, rejection and cancellation.
type UpdateJobStatusRequest struct {
	Status production.JobStatus `json:"status" validate:"required"`
	Reason string               `json:"reason" validate:"max=2000"`
}

// AddCommentRequest represents a request to post a note on a job
type AddCommentRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// JobHistoryResponse represents one job status change
type JobHistoryResponse struct {
	FromStatus *production.JobStatus `json:"from_status,omitempty"`
	ToStatus   production.JobStatus  `json:"to_status"`
	ChangedBy  shared.UserID         `json:"changed_by"`
	Reason     *string               `json:"reason,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// CommentResponse represents a job comment
type CommentResponse struct {
	ID        uint64        `json:"id"`
	AuthorID  shared.UserID `json:"author_id"`
	Body      string        `json:"body"`
	IsSystem  bool          `json:"is_system"`
	CreatedAt time.Time     `json:"created_at"`
}

// JobResponse represents a service job in API responses
type JobResponse struct {
	ID          uint64               `json:"id"`
	JobNumber   string               `json:"job_number"`
	OrderID     uint64               `json:"order_id"`
	OrderItemID uint64               `json:"order_item_id"`
	Status      production.JobStatus `json:"status"`
	AssignedTo  *shared.UserID       `json:"assigned_to,omitempty"`
	Priority    production.Priority  `json:"priority"`
	Description string               `json:"description"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	DeliveredAt *time.Time           `json:"delivered_at,omitempty"`
	ReworkCount int                  `json:"rework_count"`
	Version     int                  `json:"version"`
	CreatedAt   time.Time            `json:"created_at"`
	History     []JobHistoryResponse `json:"history,omitempty"`
	Comments    []CommentResponse    `json:"comments,omitempty"`
	// OrderStatus is set when the change moved the parent order
	OrderStatus *sales.OrderStatus `json:"order_status,omitempty"`
}

// ToJobResponse converts a job to a response
func ToJobResponse(j *production.ServiceJob, history []production.StatusHistory, comments []production.Comment) *JobResponse {
	resp := &JobResponse{
		ID:          j.ID,
		JobNumber:   j.JobNumber,
		OrderID:     j.OrderID,
		OrderItemID: j.OrderItemID,
		Status:      j.Status,
		AssignedTo:  j.AssignedTo,
		Priority:    j.Priority,
		Description: j.Description,
		DueDate:     j.DueDate,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		DeliveredAt: j.DeliveredAt,
		ReworkCount: j.ReworkCount,
		Version:     j.Version,
		CreatedAt:   j.CreatedAt,
	}
	if len(history) > 0 {
		resp.History = make([]JobHistoryResponse, len(history))
		for i, h := range history {
			resp.History[i] = JobHistoryResponse{
				FromStatus: h.FromStatus,
				ToStatus:   h.ToStatus,
				ChangedBy:  h.ChangedBy,
				Reason:     h.Reason,
				CreatedAt:  h.CreatedAt,
			}
		}
	}
	if len(comments) > 0 {
		resp.Comments = make([]CommentResponse, len(comments))
		for i, c := range comments {
			resp.Comments[i] = CommentResponse{
				ID:        c.ID,
				AuthorID:  c.AuthorID,
				Body:      c.Body,
				IsSystem:  c.IsSystem,
				CreatedAt: c.CreatedAt,
			}
		}
	}
	return resp
}
