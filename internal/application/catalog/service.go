// Package catalog serves the read side of products and customers: the
// listings counter staff browse before they build an order.
package catalog

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/shared"
)

// Service lists catalog products and customers
type Service struct {
	runner   *transaction.Runner
	validate *validator.Validate
}

func NewService(runner *transaction.Runner) *Service {
	return &Service{runner: runner, validate: shared.NewValidator()}
}

// ListProducts returns one page of products, SKU order unless asked otherwise
func (s *Service) ListProducts(ctx context.Context, req ProductListFilter) (*shared.Page[ProductResponse], error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_PRODUCT_FILTER", err)
	}
	filter := req.filter()
	if req.Type != "" {
		filter.Filters["type"] = string(req.Type)
	}
	if req.IsActive != nil {
		filter.Filters["is_active"] = *req.IsActive
	}
	if sku := strings.TrimSpace(req.SKU); sku != "" {
		filter.Filters["sku"] = strings.ToUpper(sku)
	}

	var page shared.Page[ProductResponse]
	err := s.runner.Run(ctx, "CatalogService.ListProducts", nil, func(ctx context.Context, w *transaction.Work) error {
		products, total, err := w.Repos.Products().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		items := make([]ProductResponse, len(products))
		for i := range products {
			items[i] = toProductResponse(&products[i])
		}
		page = shared.NewPage(items, total, filter)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListCustomers returns one page of customers with their credit position
func (s *Service) ListCustomers(ctx context.Context, req CustomerListFilter) (*shared.Page[CustomerResponse], error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_CUSTOMER_FILTER", err)
	}
	filter := req.filter()
	if req.Type != "" {
		filter.Filters["type"] = string(req.Type)
	}
	if req.IsActive != nil {
		filter.Filters["is_active"] = *req.IsActive
	}

	var page shared.Page[CustomerResponse]
	err := s.runner.Run(ctx, "CatalogService.ListCustomers", nil, func(ctx context.Context, w *transaction.Work) error {
		customers, total, err := w.Repos.Customers().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		items := make([]CustomerResponse, len(customers))
		for i := range customers {
			items[i] = toCustomerResponse(&customers[i])
		}
		page = shared.NewPage(items, total, filter)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}
