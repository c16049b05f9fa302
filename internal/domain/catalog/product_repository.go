package catalog

import (
	"context"

	"github.com/printshop/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uint64) (*Product, error)

	// FindBySKU finds a product by its SKU
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, ids []uint64) ([]Product, error)

	// FindAll returns one page of products and the total matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, int64, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}

// PricingRuleRepository defines the interface for pricing rule persistence
type PricingRuleRepository interface {
	// FindByID finds a rule by its ID
	FindByID(ctx context.Context, id uint64) (*PricingRule, error)

	// FindByProduct returns every rule of a product, active or not.
	FindByProduct(ctx context.Context, productID uint64) ([]PricingRule, error)

	// Save validates the rule against its product type and writes it
	Save(ctx context.Context, rule *PricingRule) error
}
