package persistence

import (
	"context"

	"github.com/printshop/backend/internal/domain/approval"
	"gorm.io/gorm"
)

// GormApprovalRepository implements approval.Repository using GORM
type GormApprovalRepository struct {
	db *gorm.DB
}

// NewGormApprovalRepository creates a new GormApprovalRepository
func NewGormApprovalRepository(db *gorm.DB) *GormApprovalRepository {
	return &GormApprovalRepository{db: db}
}

// FindByID finds an approval request by its ID
func (r *GormApprovalRepository) FindByID(ctx context.Context, id uint64) (*approval.Request, error) {
	var req approval.Request
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, notFound(err, approval.AggregateType, id)
	}
	return &req, nil
}

// FindUsable returns approved, unconsumed requests of a type for an order, oldest first
func (r *GormApprovalRepository) FindUsable(ctx context.Context, requestType approval.RequestType, orderID uint64) ([]approval.Request, error) {
	return r.findUsable(ctx, requestType, "order_id = ?", orderID)
}

// FindUsableForCustomer returns customer-level usable requests, ignoring
// those tied to a specific order.
func (r *GormApprovalRepository) FindUsableForCustomer(ctx context.Context, requestType approval.RequestType, customerID uint64) ([]approval.Request, error) {
	return r.findUsable(ctx, requestType, "customer_id = ? AND order_id IS NULL", customerID)
}

func (r *GormApprovalRepository) findUsable(ctx context.Context, requestType approval.RequestType, subject string, id uint64) ([]approval.Request, error) {
	var requests []approval.Request
	if err := r.db.WithContext(ctx).
		Where("type = ? AND status = ? AND consumed_at IS NULL", requestType, approval.StatusApproved).
		Where(subject, id).
		Order("approved_at, id").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindPending returns undecided requests of a type for an order, oldest first
func (r *GormApprovalRepository) FindPending(ctx context.Context, requestType approval.RequestType, orderID uint64) ([]approval.Request, error) {
	var requests []approval.Request
	if err := r.db.WithContext(ctx).
		Where("type = ? AND status = ? AND order_id = ?", requestType, approval.StatusPending, orderID).
		Order("created_at, id").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Save inserts a new request or updates an existing one guarded by its version
func (r *GormApprovalRepository) Save(ctx context.Context, req *approval.Request) error {
	db := r.db.WithContext(ctx)
	if req.ID == 0 {
		return db.Create(req).Error
	}
	return updateVersioned(db, req, &req.BaseAggregateRoot, approval.AggregateType)
}

var _ approval.Repository = (*GormApprovalRepository)(nil)
