package pricing

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/partner"
	domain "github.com/printshop/backend/internal/domain/pricing"
	"github.com/printshop/backend/internal/domain/shared"
)

// Service prices lines against the catalog. The other use cases price their
// items through PriceLine inside their own unit of work.
type Service struct {
	runner   *transaction.Runner
	resolver *domain.Resolver
	validate *validator.Validate
}

// NewService creates a new pricing Service
func NewService(runner *transaction.Runner, resolver *domain.Resolver) *Service {
	return &Service{
		runner:   runner,
		resolver: resolver,
		validate: shared.NewValidator(),
	}
}

// CalculatePrice quotes one line without storing anything
func (s *Service) CalculatePrice(ctx context.Context, req CalculatePriceRequest) (*PriceResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_PRICE_REQUEST", err)
	}

	var resp *PriceResponse
	err := s.runner.Run(ctx, "PricingService.CalculatePrice", nil, func(ctx context.Context, w *transaction.Work) error {
		customer, err := LoadCustomer(ctx, w.Repos, req.CustomerID)
		if err != nil {
			return err
		}
		product, res, err := s.PriceLine(ctx, w.Repos, customer, req.Line, w.Now)
		if err != nil {
			return err
		}
		resp = toPriceResponse(product, req.Line.Quantity, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// PriceLine loads the product and its rules and resolves the line at the given time.
func (s *Service) PriceLine(ctx context.Context, repos transaction.TransactionalRepositories,
	customer *partner.Customer, line LineInput, at time.Time) (*catalog.Product, domain.Result, error) {
	if err := s.validate.Struct(line); err != nil {
		return nil, domain.Result{}, shared.ValidationErrorFrom("INVALID_LINE", err)
	}
	product, err := repos.Products().FindByID(ctx, line.ProductID)
	if err != nil {
		return nil, domain.Result{}, err
	}
	if !product.IsActive {
		return nil, domain.Result{}, shared.NewValidationError("PRODUCT_INACTIVE", "The product is no longer sold").
			WithDetail("product_id", product.ID)
	}
	rules, err := repos.PricingRules().FindByProduct(ctx, product.ID)
	if err != nil {
		return nil, domain.Result{}, err
	}

	req := domain.Request{
		Product:    product,
		Rules:      rules,
		Quantity:   line.Quantity,
		Dimensions: line.Dimensions,
		Customer:   customer,
		At:         at,
	}
	if line.Override != nil {
		req.Override = &domain.Override{UnitPrice: line.Override.UnitPrice, Reason: line.Override.Reason}
	}
	res, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, domain.Result{}, err
	}
	return product, res, nil
}

// LoadCustomer returns nil for anonymous walk-in sales
func LoadCustomer(ctx context.Context, repos transaction.TransactionalRepositories, id *uint64) (*partner.Customer, error) {
	if id == nil {
		return nil, nil
	}
	return repos.Customers().FindByID(ctx, *id)
}
