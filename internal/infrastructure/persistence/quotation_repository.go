package persistence

import (
	"context"

	"github.com/printshop/backend/internal/domain/sales"
	"gorm.io/gorm"
)

// GormQuotationRepository implements sales.QuotationRepository using GORM
type GormQuotationRepository struct {
	db *gorm.DB
}

// NewGormQuotationRepository creates a new GormQuotationRepository
func NewGormQuotationRepository(db *gorm.DB) *GormQuotationRepository {
	return &GormQuotationRepository{db: db}
}

// FindByID finds a quotation with its items
func (r *GormQuotationRepository) FindByID(ctx context.Context, id uint64) (*sales.Quotation, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindForUpdate finds a quotation with its items and locks its row
func (r *GormQuotationRepository) FindForUpdate(ctx context.Context, id uint64) (*sales.Quotation, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormQuotationRepository) find(db *gorm.DB, id uint64) (*sales.Quotation, error) {
	var q sales.Quotation
	if err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&q, "id = ?", id).Error; err != nil {
		return nil, notFound(err, sales.AggregateTypeQuotation, id)
	}
	return &q, nil
}

// Save inserts a new quotation with its items or updates an existing one
// guarded by its version. Only draft quotations gain items, so existing
// items are never rewritten; new ones are inserted.
func (r *GormQuotationRepository) Save(ctx context.Context, q *sales.Quotation) error {
	db := r.db.WithContext(ctx)
	if q.ID == 0 {
		if err := db.Omit("Items").Create(q).Error; err != nil {
			return err
		}
	} else if err := updateVersioned(db, q, &q.BaseAggregateRoot, sales.AggregateTypeQuotation); err != nil {
		return err
	}
	for i := range q.Items {
		item := &q.Items[i]
		if item.ID != 0 {
			continue
		}
		item.QuotationID = q.ID
		if err := db.Create(item).Error; err != nil {
			return err
		}
	}
	return nil
}

var _ sales.QuotationRepository = (*GormQuotationRepository)(nil)
