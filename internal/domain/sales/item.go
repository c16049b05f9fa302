package sales

import (
	"strings"

	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/pricing"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ItemDetails is the priced content of a line, shared by order and quotation items.
type ItemDetails struct {
	ProductID          *uint64             `gorm:"index"`
	ItemType           catalog.ProductType `gorm:"type:varchar(20);not null"`
	Description        string              `gorm:"type:varchar(500)"`
	Quantity           int64               `gorm:"not null"`
	Dimensions         *pricing.Dimensions `gorm:"type:jsonb"`
	UnitPrice          decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	LineTotal          decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	PricingRuleID      *uint64
	OverrideReason     string `gorm:"type:varchar(500)"`
	RequiresProduction bool   `gorm:"not null"`
}

// NewItemDetails builds a line from a product and the resolver's result.
func NewItemDetails(product *catalog.Product, quantity int64, dims *pricing.Dimensions, description string, res pricing.Result) ItemDetails {
	id := product.ID
	if strings.TrimSpace(description) == "" {
		description = product.Name
	}
	return ItemDetails{
		ProductID:          &id,
		ItemType:           product.Type,
		Description:        strings.TrimSpace(description),
		Quantity:           quantity,
		Dimensions:         dims,
		UnitPrice:          res.UnitPrice,
		LineTotal:          res.LineTotal,
		PricingRuleID:      res.AppliedRuleID,
		OverrideReason:     res.OverrideReason,
		RequiresProduction: product.RequiresProduction(),
	}
}

// IsPriced reports whether the price came from a rule or a justified override.
func (d ItemDetails) IsPriced() bool {
	return d.PricingRuleID != nil || strings.TrimSpace(d.OverrideReason) != ""
}

// Validate checks the line invariants
func (d ItemDetails) Validate() error {
	if d.Quantity < 1 {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if d.UnitPrice.IsNegative() {
		return shared.NewValidationError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	if !d.LineTotal.Equal(shared.RoundMoney(d.UnitPrice.Mul(decimal.NewFromInt(d.Quantity)))) {
		return shared.NewValidationError("LINE_TOTAL_MISMATCH", "Line total must equal unit price times quantity").
			WithDetail("unit_price", d.UnitPrice.String()).
			WithDetail("quantity", d.Quantity).
			WithDetail("line_total", d.LineTotal.String())
	}
	return nil
}

// OrderItem is one priced line of an order
type OrderItem struct {
	shared.BaseEntity
	OrderID uint64 `gorm:"not null;index"`
	ItemDetails
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

func lineTotals[T interface{ lineTotal() decimal.Decimal }](items []T) []decimal.Decimal {
	out := make([]decimal.Decimal, len(items))
	for i, item := range items {
		out[i] = item.lineTotal()
	}
	return out
}

func (i OrderItem) lineTotal() decimal.Decimal { return i.LineTotal }
