package production

import "context"

// ServiceJobRepository defines the interface for service job persistence
type ServiceJobRepository interface {
	FindByID(ctx context.Context, id uint64) (*ServiceJob, error)

	// FindForUpdate row-locks the job for the surrounding transaction
	FindForUpdate(ctx context.Context, id uint64) (*ServiceJob, error)

	// FindByOrder returns every job of an order ordered by id
	FindByOrder(ctx context.Context, orderID uint64) ([]ServiceJob, error)

	FindHistory(ctx context.Context, jobID uint64) ([]StatusHistory, error)
	FindComments(ctx context.Context, jobID uint64) ([]Comment, error)

	// Save inserts a new job or updates an existing one guarded by its version.
	// Pending history rows and comments are appended.
	Save(ctx context.Context, job *ServiceJob) error
}
