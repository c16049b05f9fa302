package sales

import (
	"context"
	"time"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID loads an order with its items
	FindByID(ctx context.Context, id uint64) (*Order, error)

	// FindForUpdate loads an order with its items and row-locks it for the
	// surrounding transaction
	FindForUpdate(ctx context.Context, id uint64) (*Order, error)

	// FindHistory returns the order's status history, oldest first
	FindHistory(ctx context.Context, orderID uint64) ([]OrderStatusHistory, error)

	// Save inserts a new order or updates an existing one guarded by its
	// version. Pending history rows are appended.
	Save(ctx context.Context, order *Order) error
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uint64) (*Invoice, error)
	FindForUpdate(ctx context.Context, id uint64) (*Invoice, error)

	// FindByOrder returns the invoice of an order, or a not found error
	FindByOrder(ctx context.Context, orderID uint64) (*Invoice, error)

	// FindOpenByCustomer returns issued, partial and overdue invoices of a customer
	FindOpenByCustomer(ctx context.Context, customerID uint64) ([]Invoice, error)

	// FindPastDue returns open invoices whose due date is before at
	FindPastDue(ctx context.Context, at time.Time) ([]Invoice, error)

	Save(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository defines the interface for payment persistence. Payments
// are never updated or deleted.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uint64) (*Payment, error)
	FindByOrder(ctx context.Context, orderID uint64) ([]Payment, error)
	FindByInvoice(ctx context.Context, invoiceID uint64) ([]Payment, error)
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	Create(ctx context.Context, payment *Payment) error
}

// QuotationRepository defines the interface for quotation persistence
type QuotationRepository interface {
	FindByID(ctx context.Context, id uint64) (*Quotation, error)
	FindForUpdate(ctx context.Context, id uint64) (*Quotation, error)
	Save(ctx context.Context, quotation *Quotation) error
}
