package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPaymentRepository implements sales.PaymentRepository using GORM.
// Payments are append-only.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uint64) (*sales.Payment, error) {
	var payment sales.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, notFound(err, sales.AggregateTypePayment, id)
	}
	return &payment, nil
}

// FindByOrder returns the payments of an order, oldest first
func (r *GormPaymentRepository) FindByOrder(ctx context.Context, orderID uint64) ([]sales.Payment, error) {
	var payments []sales.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("payment_date, id").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindByInvoice returns the payments of an invoice, oldest first
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uint64) ([]sales.Payment, error) {
	var payments []sales.Payment
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date, id").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ExistsByReference reports whether a payment with the reference was recorded
func (r *GormPaymentRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sales.Payment{}).
		Where("reference = ?", strings.TrimSpace(reference)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a payment. A reference taken by a concurrent transaction
// surfaces as a duplicate through the unique index.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *sales.Payment) error {
	if payment.ID != 0 {
		return shared.NewValidationError("PAYMENT_IMMUTABLE", "Payments cannot be changed once recorded").
			WithDetail("payment_id", payment.ID)
	}
	err := r.db.WithContext(ctx).Create(payment).Error
	if err != nil && payment.Reference != nil && isUniqueViolation(err) {
		return shared.NewValidationError("DUPLICATE_PAYMENT_REFERENCE", "A payment with this reference was already recorded").
			WithDetail("reference", *payment.Reference)
	}
	return err
}

// isUniqueViolation recognises unique constraint failures from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

var _ sales.PaymentRepository = (*GormPaymentRepository)(nil)
