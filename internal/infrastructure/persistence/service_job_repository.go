package persistence

import (
	"context"

	"github.com/printshop/backend/internal/domain/production"
	"gorm.io/gorm"
)

// GormServiceJobRepository implements production.ServiceJobRepository using GORM
type GormServiceJobRepository struct {
	db *gorm.DB
}

// NewGormServiceJobRepository creates a new GormServiceJobRepository
func NewGormServiceJobRepository(db *gorm.DB) *GormServiceJobRepository {
	return &GormServiceJobRepository{db: db}
}

// FindByID finds a service job by its ID
func (r *GormServiceJobRepository) FindByID(ctx context.Context, id uint64) (*production.ServiceJob, error) {
	var job production.ServiceJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFound(err, production.AggregateType, id)
	}
	return &job, nil
}

// FindForUpdate finds a service job and locks its row
func (r *GormServiceJobRepository) FindForUpdate(ctx context.Context, id uint64) (*production.ServiceJob, error) {
	var job production.ServiceJob
	if err := forUpdate(r.db.WithContext(ctx)).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFound(err, production.AggregateType, id)
	}
	return &job, nil
}

// FindByOrder returns the jobs of an order ordered by id
func (r *GormServiceJobRepository) FindByOrder(ctx context.Context, orderID uint64) ([]production.ServiceJob, error) {
	var jobs []production.ServiceJob
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindHistory returns the status trail of a job, oldest first
func (r *GormServiceJobRepository) FindHistory(ctx context.Context, jobID uint64) ([]production.StatusHistory, error) {
	var history []production.StatusHistory
	if err := r.db.WithContext(ctx).
		Where("service_job_id = ?", jobID).
		Order("created_at, id").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// FindComments returns the comments on a job, oldest first
func (r *GormServiceJobRepository) FindComments(ctx context.Context, jobID uint64) ([]production.Comment, error) {
	var comments []production.Comment
	if err := r.db.WithContext(ctx).
		Where("service_job_id = ?", jobID).
		Order("created_at, id").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Save inserts a new job or updates an existing one guarded by its version.
// Pending history rows and comments are inserted in place, so callers holding
// a pointer into them see the assigned IDs.
func (r *GormServiceJobRepository) Save(ctx context.Context, job *production.ServiceJob) error {
	db := r.db.WithContext(ctx)
	if job.ID == 0 {
		if err := db.Create(job).Error; err != nil {
			return err
		}
	} else if err := updateVersioned(db, job, &job.BaseAggregateRoot, production.AggregateType); err != nil {
		return err
	}

	history := job.PendingHistory()
	for i := range history {
		history[i].ServiceJobID = job.ID
		if err := db.Create(&history[i]).Error; err != nil {
			return err
		}
	}
	comments := job.PendingComments()
	for i := range comments {
		comments[i].ServiceJobID = job.ID
		if err := db.Create(&comments[i]).Error; err != nil {
			return err
		}
	}
	job.ClearPending()
	return nil
}

var _ production.ServiceJobRepository = (*GormServiceJobRepository)(nil)
