package catalog

import (
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductType decides which pricing rules a product can use and whether its
// order items go through production.
type ProductType string

const (
	ProductTypeInventory ProductType = "inventory"
	ProductTypeService   ProductType = "service"
	ProductTypeDimension ProductType = "dimension"
)

// IsValid checks if the product type is valid
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeInventory, ProductTypeService, ProductTypeDimension:
		return true
	}
	return false
}

// RequiresProduction reports whether items of this type are produced by a service job.
func (t ProductType) RequiresProduction() bool {
	return t == ProductTypeService || t == ProductTypeDimension
}

// AllowedRuleTypes returns the rule shapes that can price this product type.
// customer_specific rules wrap one of these shapes.
func (t ProductType) AllowedRuleTypes() []RuleType {
	switch t {
	case ProductTypeInventory, ProductTypeService:
		return []RuleType{RuleTypeQuantityTier, RuleTypeFixed}
	case ProductTypeDimension:
		return []RuleType{RuleTypeDimension}
	}
	return nil
}

// Allows reports whether rt may price this product type.
func (t ProductType) Allows(rt RuleType) bool {
	for _, allowed := range t.AllowedRuleTypes() {
		if allowed == rt {
			return true
		}
	}
	return false
}

// Product is a sellable catalog entry. It is soft-disabled, never deleted.
type Product struct {
	shared.BaseAggregateRoot
	SKU      string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name     string          `gorm:"type:varchar(200);not null"`
	Type     ProductType     `gorm:"type:varchar(20);not null"`
	UnitCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	StockQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsActive bool            `gorm:"not null"`
	// ProductionFlag marks an inventory product that still needs a production job.
	ProductionFlag bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new active product
func NewProduct(sku, name string, productType ProductType, unitCost decimal.Decimal) (*Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" || len(sku) > 50 {
		return nil, shared.NewValidationError("INVALID_SKU", "SKU must be 1-50 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.NewValidationError("INVALID_PRODUCT_NAME", "Product name must be 1-200 characters")
	}
	if !productType.IsValid() {
		return nil, shared.NewValidationError("INVALID_PRODUCT_TYPE", "Product type must be inventory, service or dimension")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewValidationError("INVALID_UNIT_COST", "Unit cost cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		Type:              productType,
		UnitCost:          unitCost,
		StockQty:          decimal.Zero,
		IsActive:          true,
	}, nil
}

// RequiresProduction reports whether an order item for this product spawns a service job.
func (p *Product) RequiresProduction() bool {
	return p.ProductionFlag || p.Type.RequiresProduction()
}

// Deactivate soft-disables the product. Existing order items keep referencing it.
func (p *Product) Deactivate() {
	p.IsActive = false
	p.Touch(time.Now())
}

// Activate re-enables the product
func (p *Product) Activate() {
	p.IsActive = true
	p.Touch(time.Now())
}

// SetProductionFlag marks an inventory product as requiring production work.
func (p *Product) SetProductionFlag(flag bool) {
	p.ProductionFlag = flag
	p.Touch(time.Now())
}
