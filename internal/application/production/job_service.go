// Package production runs the service job workflow and keeps the parent order
// in step with it.
package production

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// JobService handles service jobs
type JobService struct {
	runner   *transaction.Runner
	validate *validator.Validate
}

// NewJobService creates a new JobService
func NewJobService(runner *transaction.Runner) *JobService {
	return &JobService{
		runner:   runner,
		validate: shared.NewValidator(),
	}
}

func jobKey(id uint64) string {
	return shared.AggregateLockKey(production.AggregateType, id)
}

func orderKey(id uint64) string {
	return shared.AggregateLockKey(sales.AggregateTypeOrder, id)
}

// GetServiceJob returns a job with its status trail and comments
func (s *JobService) GetServiceJob(ctx context.Context, id uint64) (*JobResponse, error) {
	var resp *JobResponse
	err := s.runner.Run(ctx, "JobService.GetServiceJob", nil, func(ctx context.Context, w *transaction.Work) error {
		job, err := w.Repos.Jobs().FindByID(ctx, id)
		if err != nil {
			return err
		}
		history, err := w.Repos.Jobs().FindHistory(ctx, id)
		if err != nil {
			return err
		}
		comments, err := w.Repos.Jobs().FindComments(ctx, id)
		if err != nil {
			return err
		}
		resp = ToJobResponse(job, history, comments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListOrderJobs returns the jobs of an order
func (s *JobService) ListOrderJobs(ctx context.Context, orderID uint64) ([]JobResponse, error) {
	var resp []JobResponse
	err := s.runner.Run(ctx, "JobService.ListOrderJobs", nil, func(ctx context.Context, w *transaction.Work) error {
		jobs, err := w.Repos.Jobs().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		resp = make([]JobResponse, len(jobs))
		for i := range jobs {
			resp[i] = *ToJobResponse(&jobs[i], nil, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// AssignServiceJob hands a job to a user, moving ACCEPTED jobs to ASSIGNED
func (s *JobService) AssignServiceJob(ctx context.Context, id uint64, actor shared.UserID, req AssignJobRequest) (*JobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_ASSIGN_REQUEST", err)
	}
	var resp *JobResponse
	err := s.runner.Run(ctx, "JobService.AssignServiceJob", []string{jobKey(id)}, func(ctx context.Context, w *transaction.Work) error {
		job, err := w.Repos.Jobs().FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := job.Assign(req.AssigneeID, actor, w.Now); err != nil {
			return err
		}
		if err := w.Repos.Jobs().Save(ctx, job); err != nil {
			return err
		}
		w.Collect(job)
		resp = ToJobResponse(job, nil, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateServiceJobStatus moves a job. When the last outstanding job of an order
// in production completes, the order becomes READY in the same transaction.
func (s *JobService) UpdateServiceJobStatus(ctx context.Context, id uint64, actor shared.UserID, req UpdateJobStatusRequest) (*JobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_STATUS_REQUEST", err)
	}
	if !req.Status.IsValid() {
		return nil, shared.NewValidationError("INVALID_JOB_STATUS", "Unknown service job status").
			WithDetail("status", string(req.Status))
	}

	// The order is locked ahead of the job, the same order the order workflow
	// takes them in. A job never moves to another order.
	orderID, err := s.orderOf(ctx, id)
	if err != nil {
		return nil, err
	}

	var resp *JobResponse
	err = s.runner.Run(ctx, "JobService.UpdateServiceJobStatus", []string{orderKey(orderID), jobKey(id)}, func(ctx context.Context, w *transaction.Work) error {
		order, err := w.Repos.Orders().FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		job, err := w.Repos.Jobs().FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := job.TransitionTo(req.Status, actor, req.Reason, w.Now); err != nil {
			return err
		}
		if err := w.Repos.Jobs().Save(ctx, job); err != nil {
			return err
		}
		w.Collect(job)
		resp = ToJobResponse(job, nil, nil)

		if job.Status != production.JobStatusCompleted || order.Status != sales.OrderStatusInProduction {
			return nil
		}
		jobs, err := w.Repos.Jobs().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range jobs {
			if jobs[i].IsOutstanding() {
				return nil
			}
		}
		if err := order.MarkReady(actor, 0, "all service jobs completed", w.Now); err != nil {
			return err
		}
		if err := w.Repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		w.Collect(order)
		status := order.Status
		resp.OrderStatus = &status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resp.OrderStatus != nil {
		s.runner.Logger().Info("order ready after last job completed",
			zap.Uint64("order_id", orderID),
			zap.Uint64("service_job_id", id),
		)
	}
	return resp, nil
}

// AddComment posts a note on a job
func (s *JobService) AddComment(ctx context.Context, id uint64, actor shared.UserID, req AddCommentRequest) (*CommentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_COMMENT_REQUEST", err)
	}
	var resp *CommentResponse
	err := s.runner.Run(ctx, "JobService.AddComment", []string{jobKey(id)}, func(ctx context.Context, w *transaction.Work) error {
		job, err := w.Repos.Jobs().FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		comment, err := job.AddComment(actor, req.Body, w.Now)
		if err != nil {
			return err
		}
		// Save inserts the pending comment in place, filling in its ID.
		if err := w.Repos.Jobs().Save(ctx, job); err != nil {
			return err
		}
		resp = &CommentResponse{
			ID:        comment.ID,
			AuthorID:  comment.AuthorID,
			Body:      comment.Body,
			IsSystem:  comment.IsSystem,
			CreatedAt: comment.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *JobService) orderOf(ctx context.Context, id uint64) (uint64, error) {
	var orderID uint64
	err := s.runner.Run(ctx, "JobService.orderOf", nil, func(ctx context.Context, w *transaction.Work) error {
		job, err := w.Repos.Jobs().FindByID(ctx, id)
		if err != nil {
			return err
		}
		orderID = job.OrderID
		return nil
	})
	return orderID, err
}
