package persistence

import (
	"context"
	"time"

	"github.com/printshop/backend/internal/domain/sales"
	"gorm.io/gorm"
)

var openInvoiceStatuses = []sales.InvoiceStatus{
	sales.InvoiceStatusIssued,
	sales.InvoiceStatusPartial,
	sales.InvoiceStatusOverdue,
}

// GormInvoiceRepository implements sales.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uint64) (*sales.Invoice, error) {
	var invoice sales.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, notFound(err, sales.AggregateTypeInvoice, id)
	}
	return &invoice, nil
}

// FindForUpdate finds an invoice and locks its row
func (r *GormInvoiceRepository) FindForUpdate(ctx context.Context, id uint64) (*sales.Invoice, error) {
	var invoice sales.Invoice
	if err := forUpdate(r.db.WithContext(ctx)).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, notFound(err, sales.AggregateTypeInvoice, id)
	}
	return &invoice, nil
}

// FindByOrder finds the invoice billing an order
func (r *GormInvoiceRepository) FindByOrder(ctx context.Context, orderID uint64) (*sales.Invoice, error) {
	var invoice sales.Invoice
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		First(&invoice).Error; err != nil {
		return nil, notFound(err, sales.AggregateTypeInvoice, 0)
	}
	return &invoice, nil
}

// FindOpenByCustomer returns the customer's issued, partial and overdue invoices
func (r *GormInvoiceRepository) FindOpenByCustomer(ctx context.Context, customerID uint64) ([]sales.Invoice, error) {
	var invoices []sales.Invoice
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status IN ?", customerID, openInvoiceStatuses).
		Order("due_date, id").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindPastDue returns issued and partial invoices due before at with money owed
func (r *GormInvoiceRepository) FindPastDue(ctx context.Context, at time.Time) ([]sales.Invoice, error) {
	var invoices []sales.Invoice
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND due_date < ? AND balance > 0",
			[]sales.InvoiceStatus{sales.InvoiceStatusIssued, sales.InvoiceStatusPartial}, at).
		Order("due_date, id").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save inserts a new invoice or updates an existing one guarded by its version
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *sales.Invoice) error {
	db := r.db.WithContext(ctx)
	if invoice.ID == 0 {
		return db.Create(invoice).Error
	}
	return updateVersioned(db, invoice, &invoice.BaseAggregateRoot, sales.AggregateTypeInvoice)
}

var _ sales.InvoiceRepository = (*GormInvoiceRepository)(nil)
