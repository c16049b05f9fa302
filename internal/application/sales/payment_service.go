package sales

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/numbering"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const referenceKeyPrefix = "payment:reference:"

// PaymentService records money received
type PaymentService struct {
	runner       *transaction.Runner
	references   shared.IdempotencyStore
	referenceTTL time.Duration
	validate     *validator.Validate
}

// NewPaymentService creates a new PaymentService. references may be nil, in
// which case duplicates are only caught by the database.
func NewPaymentService(runner *transaction.Runner, references shared.IdempotencyStore, referenceTTL time.Duration) *PaymentService {
	return &PaymentService{
		runner:       runner,
		references:   references,
		referenceTTL: referenceTTL,
		validate:     shared.NewValidator(),
	}
}

func duplicateReference(ref string) error {
	return shared.NewValidationError("DUPLICATE_PAYMENT_REFERENCE", "A payment with this reference was already recorded").
		WithDetail("reference", ref)
}

// RecordPayment stores a payment and applies it to its order and invoice in
// one transaction. Paying an invoice also pays the order it bills, and paying
// an order also moves its invoice, so both ledgers stay in step.
func (s *PaymentService) RecordPayment(ctx context.Context, actor shared.UserID, req RecordPaymentRequest) (*PaymentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_PAYMENT_REQUEST", err)
	}
	if req.OrderID == nil && req.InvoiceID == nil {
		return nil, shared.NewValidationError("PAYMENT_TARGET_REQUIRED", "A payment must reference an order or an invoice")
	}

	ref := strings.TrimSpace(req.Reference)
	marked := false
	if ref != "" && s.references != nil {
		fresh, err := s.references.MarkProcessed(ctx, referenceKeyPrefix+ref, s.referenceTTL)
		switch {
		case err != nil:
			s.runner.Logger().Warn("payment reference store unavailable, relying on database",
				zap.String("reference", ref), zap.Error(err))
		case !fresh:
			return nil, duplicateReference(ref)
		default:
			marked = true
		}
	}

	resp, err := s.record(ctx, actor, req, ref)
	if err != nil {
		if marked {
			s.releaseReference(ref)
		}
		return nil, err
	}
	return resp, nil
}

func (s *PaymentService) releaseReference(ref string) {
	if err := s.references.Release(context.Background(), referenceKeyPrefix+ref); err != nil {
		s.runner.Logger().Warn("failed to release payment reference", zap.String("reference", ref), zap.Error(err))
	}
}

func (s *PaymentService) record(ctx context.Context, actor shared.UserID, req RecordPaymentRequest, ref string) (*PaymentResponse, error) {
	targets, err := s.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp *PaymentResponse
	err = s.runner.Run(ctx, "PaymentService.RecordPayment", targets.keys(), func(ctx context.Context, w *transaction.Work) error {
		if ref != "" {
			exists, err := w.Repos.Payments().ExistsByReference(ctx, ref)
			if err != nil {
				return err
			}
			if exists {
				return duplicateReference(ref)
			}
		}

		order, invoice, err := s.loadTargets(ctx, w, targets)
		if err != nil {
			return err
		}

		in := sales.PaymentInput{
			Amount:     req.Amount,
			Method:     req.Method,
			Reference:  ref,
			Notes:      req.Notes,
			ReceivedBy: actor,
		}
		if order != nil {
			id := order.ID
			in.OrderID = &id
			in.CustomerID = order.CustomerID
		}
		if invoice != nil {
			id := invoice.ID
			in.InvoiceID = &id
			if in.CustomerID == nil {
				in.CustomerID = invoice.CustomerID
			}
		}
		in.PaymentNumber, err = numbering.Issue(ctx, w.Repos.Sequences(), numbering.KindPayment, w.Now)
		if err != nil {
			return err
		}
		payment, err := sales.NewPayment(in, w.Now)
		if err != nil {
			return err
		}
		if err := w.Repos.Payments().Create(ctx, payment); err != nil {
			return err
		}

		resp = ToPaymentResponse(payment)
		if order != nil {
			if err := order.ApplyPayment(payment.Amount, actor, w.Now); err != nil {
				return err
			}
			if err := w.Repos.Orders().Save(ctx, order); err != nil {
				return err
			}
			w.Collect(order)
			resp.Order = ToOrderResponse(order, nil)
		}
		if invoice != nil {
			if req.InvoiceID != nil {
				err = invoice.ApplyPayment(payment.Amount, w.Now)
			} else {
				err = invoice.CarryPayment(payment.Amount, w.Now)
			}
			if err != nil {
				return err
			}
			if err := w.Repos.Invoices().Save(ctx, invoice); err != nil {
				return err
			}
			resp.Invoice = ToInvoiceResponse(invoice)
		}
		w.Raise(sales.NewPaymentRecordedEvent(payment))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// paymentTargets is the order and invoice a payment lands on, with the link
// between them followed when only one was given.
type paymentTargets struct {
	orderID   *uint64
	invoiceID *uint64
}

func (t paymentTargets) keys() []string {
	keys := make([]string, 0, 2)
	if t.orderID != nil {
		keys = append(keys, orderKey(*t.orderID))
	}
	if t.invoiceID != nil {
		keys = append(keys, invoiceKey(*t.invoiceID))
	}
	return keys
}

// resolveTargets reads the order and invoice link without locking, so the
// payment can lock both aggregates up front.
func (s *PaymentService) resolveTargets(ctx context.Context, req RecordPaymentRequest) (paymentTargets, error) {
	targets := paymentTargets{orderID: req.OrderID, invoiceID: req.InvoiceID}
	err := s.runner.Run(ctx, "PaymentService.resolveTargets", nil, func(ctx context.Context, w *transaction.Work) error {
		if req.InvoiceID != nil {
			invoice, err := w.Repos.Invoices().FindByID(ctx, *req.InvoiceID)
			if err != nil {
				return err
			}
			if invoice.OrderID != nil {
				if req.OrderID != nil && *req.OrderID != *invoice.OrderID {
					return shared.NewValidationError("PAYMENT_TARGET_MISMATCH", "The invoice does not bill the given order").
						WithDetail("order_id", *req.OrderID).
						WithDetail("invoice_order_id", *invoice.OrderID)
				}
				targets.orderID = invoice.OrderID
			}
			return nil
		}
		linked, err := w.Repos.Invoices().FindByOrder(ctx, *req.OrderID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
		case err != nil:
			return err
		default:
			id := linked.ID
			targets.invoiceID = &id
		}
		return nil
	})
	return targets, err
}

// loadTargets row-locks the order before the invoice, the same order every
// other workflow takes them in, and checks the link has not moved since it
// was resolved.
func (s *PaymentService) loadTargets(ctx context.Context, w *transaction.Work, targets paymentTargets) (*sales.Order, *sales.Invoice, error) {
	var order *sales.Order
	if targets.orderID != nil {
		o, err := w.Repos.Orders().FindForUpdate(ctx, *targets.orderID)
		if err != nil {
			return nil, nil, err
		}
		order = o
	}

	var invoice *sales.Invoice
	if targets.invoiceID != nil {
		inv, err := w.Repos.Invoices().FindForUpdate(ctx, *targets.invoiceID)
		if err != nil {
			return nil, nil, err
		}
		invoice = inv
	} else if order != nil {
		// An invoice raised after the link was read is not covered by our locks
		_, err := w.Repos.Invoices().FindByOrder(ctx, order.ID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
		case err != nil:
			return nil, nil, err
		default:
			return nil, nil, shared.NewConcurrencyConflictError(sales.AggregateTypeOrder, order.ID).
				WithDetail("reason", "invoice raised while the payment was prepared")
		}
	}
	return order, invoice, nil
}
