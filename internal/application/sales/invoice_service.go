package sales

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/numbering"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Overdue sweeps retry when a concurrent payment bumps an invoice version.
const (
	sweepAttempts = 3
	sweepBackoff  = 50 * time.Millisecond
)

// InvoiceService handles the invoice lifecycle
type InvoiceService struct {
	runner   *transaction.Runner
	validate *validator.Validate
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(runner *transaction.Runner) *InvoiceService {
	return &InvoiceService{
		runner:   runner,
		validate: shared.NewValidator(),
	}
}

func invoiceKey(id uint64) string {
	return shared.AggregateLockKey(sales.AggregateTypeInvoice, id)
}

// CreateFromOrder snapshots an order into a draft invoice. An order has at most one invoice.
func (s *InvoiceService) CreateFromOrder(ctx context.Context, actor shared.UserID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_INVOICE_REQUEST", err)
	}
	overrides := make([]sales.ItemOverride, len(req.Overrides))
	for i, ov := range req.Overrides {
		overrides[i] = sales.ItemOverride{OrderItemID: ov.OrderItemID, UnitPrice: ov.UnitPrice, Reason: ov.Reason}
	}

	var resp *InvoiceResponse
	err := s.runner.Run(ctx, "InvoiceService.CreateFromOrder", []string{orderKey(req.OrderID)}, func(ctx context.Context, w *transaction.Work) error {
		order, err := w.Repos.Orders().FindForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		existing, err := w.Repos.Invoices().FindByOrder(ctx, order.ID)
		if err == nil {
			return shared.NewValidationError("INVOICE_EXISTS", "The order is already invoiced").
				WithDetail("order_id", order.ID).
				WithDetail("invoice_id", existing.ID)
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		number, err := numbering.Issue(ctx, w.Repos.Sequences(), numbering.KindInvoice, w.Now)
		if err != nil {
			return err
		}
		invoice, err := sales.NewInvoiceFromOrder(number, order, overrides, actor, w.Now)
		if err != nil {
			return err
		}
		if err := w.Repos.Invoices().Save(ctx, invoice); err != nil {
			return err
		}
		resp = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetInvoice returns an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uint64) (*InvoiceResponse, error) {
	var resp *InvoiceResponse
	err := s.runner.Run(ctx, "InvoiceService.GetInvoice", nil, func(ctx context.Context, w *transaction.Work) error {
		invoice, err := w.Repos.Invoices().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// OverrideItem adjusts the billed price of one line on a draft invoice
func (s *InvoiceService) OverrideItem(ctx context.Context, id uint64, req ItemOverrideInput) (*InvoiceResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_OVERRIDE_REQUEST", err)
	}
	return s.mutate(ctx, "InvoiceService.OverrideItem", id, func(_ context.Context, w *transaction.Work, inv *sales.Invoice) error {
		return inv.OverrideItem(sales.ItemOverride{OrderItemID: req.OrderItemID, UnitPrice: req.UnitPrice, Reason: req.Reason}, w.Now)
	})
}

// Issue sends a draft invoice. Credit customers get their settlement period;
// everyone else is due on issue.
func (s *InvoiceService) Issue(ctx context.Context, id uint64) (*InvoiceResponse, error) {
	return s.mutate(ctx, "InvoiceService.Issue", id, func(ctx context.Context, w *transaction.Work, inv *sales.Invoice) error {
		days := 0
		if inv.CustomerID != nil {
			customer, err := w.Repos.Customers().FindByID(ctx, *inv.CustomerID)
			if err != nil {
				return err
			}
			days = customer.CreditPeriodDays
		}
		return inv.Issue(days, w.Now)
	})
}

// Dispute puts an invoice on hold
func (s *InvoiceService) Dispute(ctx context.Context, id uint64, req DisputeInvoiceRequest) (*InvoiceResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_DISPUTE_REQUEST", err)
	}
	return s.mutate(ctx, "InvoiceService.Dispute", id, func(_ context.Context, w *transaction.Work, inv *sales.Invoice) error {
		return inv.Dispute(req.Reason, w.Now)
	})
}

// MarkOverdue flags every open invoice past its due date and returns how many
// changed. The sweep is idempotent, so it is retried on version conflicts.
func (s *InvoiceService) MarkOverdue(ctx context.Context) (int, error) {
	marked := 0
	err := transaction.Retry(ctx, sweepAttempts, sweepBackoff, func() error {
		marked = 0
		return s.runner.Run(ctx, "InvoiceService.MarkOverdue", nil, func(ctx context.Context, w *transaction.Work) error {
			due, err := w.Repos.Invoices().FindPastDue(ctx, w.Now)
			if err != nil {
				return err
			}
			for i := range due {
				if !due[i].MarkOverdue(w.Now) {
					continue
				}
				if err := w.Repos.Invoices().Save(ctx, &due[i]); err != nil {
					return err
				}
				marked++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.runner.Logger().Info("invoices marked overdue", zap.Int("count", marked))
	}
	return marked, nil
}

func (s *InvoiceService) mutate(ctx context.Context, op string, id uint64,
	fn func(ctx context.Context, w *transaction.Work, inv *sales.Invoice) error) (*InvoiceResponse, error) {
	var resp *InvoiceResponse
	err := s.runner.Run(ctx, op, []string{invoiceKey(id)}, func(ctx context.Context, w *transaction.Work) error {
		invoice, err := w.Repos.Invoices().FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, w, invoice); err != nil {
			return err
		}
		if err := w.Repos.Invoices().Save(ctx, invoice); err != nil {
			return err
		}
		resp = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
