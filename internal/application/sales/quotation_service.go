package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/printshop/backend/internal/application/pricing"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/numbering"
	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// QuotationService handles quotations and their conversion into orders
type QuotationService struct {
	runner   *transaction.Runner
	pricer   *pricing.Service
	policy   Policy
	validate *validator.Validate
}

// NewQuotationService creates a new QuotationService
func NewQuotationService(runner *transaction.Runner, pricer *pricing.Service, policy Policy) *QuotationService {
	return &QuotationService{
		runner:   runner,
		pricer:   pricer,
		policy:   policy,
		validate: shared.NewValidator(),
	}
}

func quotationKey(id uint64) string {
	return shared.AggregateLockKey(sales.AggregateTypeQuotation, id)
}

// CreateQuotation prices the requested lines into a draft quotation. A quoted
// discount must stay within the counter limit; larger ones are negotiated on
// the order.
func (s *QuotationService) CreateQuotation(ctx context.Context, actor shared.UserID, req CreateQuotationRequest) (*QuotationResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_QUOTATION_REQUEST", err)
	}
	terms := req.PaymentTerms
	if terms == "" {
		terms = sales.PaymentTermsImmediate
	}

	var resp *QuotationResponse
	err := s.runner.Run(ctx, "QuotationService.CreateQuotation", nil, func(ctx context.Context, w *transaction.Work) error {
		customer, err := pricing.LoadCustomer(ctx, w.Repos, req.CustomerID)
		if err != nil {
			return err
		}
		number, err := numbering.Issue(ctx, w.Repos.Sequences(), numbering.KindQuotation, w.Now)
		if err != nil {
			return err
		}
		q, err := sales.NewQuotation(number, req.CustomerID, terms, req.ValidUntil, s.policy.TaxRate, actor, req.Notes, w.Now)
		if err != nil {
			return err
		}
		for _, line := range req.Items {
			product, res, err := s.pricer.PriceLine(ctx, w.Repos, customer, line, w.Now)
			if err != nil {
				return err
			}
			if err := q.AddItem(sales.NewItemDetails(product, line.Quantity, line.Dimensions, line.Description, res), w.Now); err != nil {
				return err
			}
		}
		if req.Discount != nil {
			discount, err := discountFrom(*req.Discount)
			if err != nil {
				return err
			}
			amount, err := discount.AmountOf(q.Subtotal)
			if err != nil {
				return err
			}
			if limit := s.policy.counterLimit(q.Subtotal); amount.GreaterThan(limit) {
				return shared.NewValidationError("DISCOUNT_ABOVE_LIMIT",
					fmt.Sprintf("a quoted discount may not exceed %s", limit.StringFixed(2))).
					WithDetail("amount", amount.String()).
					WithDetail("limit", limit.String())
			}
			if err := q.ApplyDiscount(discount, w.Now); err != nil {
				return err
			}
		}
		if err := w.Repos.Quotations().Save(ctx, q); err != nil {
			return err
		}
		resp = ToQuotationResponse(q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetQuotation returns a quotation by ID
func (s *QuotationService) GetQuotation(ctx context.Context, id uint64) (*QuotationResponse, error) {
	var resp *QuotationResponse
	err := s.runner.Run(ctx, "QuotationService.GetQuotation", nil, func(ctx context.Context, w *transaction.Work) error {
		q, err := w.Repos.Quotations().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = ToQuotationResponse(q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateStatus moves a quotation along its lifecycle
func (s *QuotationService) UpdateStatus(ctx context.Context, id uint64, req UpdateQuotationStatusRequest) (*QuotationResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_STATUS_REQUEST", err)
	}
	var resp *QuotationResponse
	err := s.runner.Run(ctx, "QuotationService.UpdateStatus", []string{quotationKey(id)}, func(ctx context.Context, w *transaction.Work) error {
		q, err := w.Repos.Quotations().FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := q.TransitionTo(req.Status, w.Now); err != nil {
			return err
		}
		if err := w.Repos.Quotations().Save(ctx, q); err != nil {
			return err
		}
		resp = ToQuotationResponse(q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ConvertQuotation creates a DRAFT order from a quotation. Either the order
// exists and the quotation is CONVERTED, or nothing changed.
func (s *QuotationService) ConvertQuotation(ctx context.Context, id uint64, actor shared.UserID, req ConvertQuotationRequest) (*OrderResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_CONVERT_REQUEST", err)
	}
	orderType := req.OrderType
	if orderType == "" {
		orderType = sales.OrderTypeCounter
	}

	var resp *OrderResponse
	err := s.runner.Run(ctx, "QuotationService.ConvertQuotation", []string{quotationKey(id)}, func(ctx context.Context, w *transaction.Work) error {
		q, err := w.Repos.Quotations().FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := q.CanConvert(w.Now); err != nil {
			return err
		}
		customer, err := pricing.LoadCustomer(ctx, w.Repos, q.CustomerID)
		if err != nil {
			return err
		}

		number, err := numbering.Issue(ctx, w.Repos.Sequences(), numbering.KindOrder, w.Now)
		if err != nil {
			return err
		}
		order, err := sales.NewOrder(number, q.CustomerID, orderType, q.PaymentTerms, q.TaxRate, actor, q.Notes, w.Now)
		if err != nil {
			return err
		}
		quotationID := q.ID
		order.QuotationID = &quotationID

		for _, item := range q.Items {
			details, err := s.carryItem(ctx, w, customer, item, req.Reprice)
			if err != nil {
				return err
			}
			if _, err := order.AddItem(details, w.Now); err != nil {
				return err
			}
		}
		if discount := q.Figures.Discount(); !discount.IsZero() {
			if err := order.ApplyDiscount(discount, w.Now); err != nil {
				return err
			}
		}
		if err := w.Repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		if err := q.MarkConverted(order.ID, w.Now); err != nil {
			return err
		}
		if err := w.Repos.Quotations().Save(ctx, q); err != nil {
			return err
		}

		w.Raise(sales.NewOrderCreatedEvent(order))
		w.Collect(order)
		resp = ToOrderResponse(order, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.Logger().Info("quotation converted",
		zap.Uint64("quotation_id", id),
		zap.Uint64("order_id", resp.ID),
		zap.Bool("repriced", req.Reprice),
	)
	return resp, nil
}

// carryItem turns a quoted line into order line content. Products must still
// be on sale. Quoted prices are kept unless reprice is set; a manual override
// survives repricing.
func (s *QuotationService) carryItem(ctx context.Context, w *transaction.Work, customer *partner.Customer,
	item sales.QuotationItem, reprice bool) (sales.ItemDetails, error) {
	if item.ProductID == nil {
		return item.ItemDetails, nil
	}
	if !reprice {
		product, err := w.Repos.Products().FindByID(ctx, *item.ProductID)
		if err != nil {
			return sales.ItemDetails{}, err
		}
		if !product.IsActive {
			return sales.ItemDetails{}, shared.NewValidationError("PRODUCT_INACTIVE", "The product is no longer sold").
				WithDetail("product_id", product.ID)
		}
		return item.ItemDetails, nil
	}

	line := pricing.LineInput{
		ProductID:   *item.ProductID,
		Quantity:    item.Quantity,
		Dimensions:  item.Dimensions,
		Description: item.Description,
	}
	if strings.TrimSpace(item.OverrideReason) != "" {
		line.Override = &pricing.OverrideInput{UnitPrice: item.UnitPrice, Reason: item.OverrideReason}
	}
	product, res, err := s.pricer.PriceLine(ctx, w.Repos, customer, line, w.Now)
	if err != nil {
		return sales.ItemDetails{}, err
	}
	return sales.NewItemDetails(product, line.Quantity, line.Dimensions, line.Description, res), nil
}
