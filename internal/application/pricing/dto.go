package pricing

import (
	"github.com/printshop/backend/internal/domain/catalog"
	domain "github.com/printshop/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// OverrideInput is a manual unit price with its justification
type OverrideInput struct {
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Reason    string          `json:"reason" validate:"required,max=500"`
}

// LineInput describes one line to price
type LineInput struct {
	ProductID   uint64             `json:"product_id" validate:"required"`
	Quantity    int64              `json:"quantity" validate:"gte=1"`
	Dimensions  *domain.Dimensions `json:"dimensions"`
	Description string             `json:"description" validate:"max=500"`
	Override    *OverrideInput     `json:"price_override"`
}

// CalculatePriceRequest represents a request to quote a single line
type CalculatePriceRequest struct {
	CustomerID *uint64   `json:"customer_id"`
	Line       LineInput `json:"line"`
}

// PriceResponse is the priced line and where its price came from
type PriceResponse struct {
	ProductID          uint64           `json:"product_id"`
	SKU                string           `json:"sku"`
	Quantity           int64            `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	LineTotal          decimal.Decimal  `json:"line_total"`
	AppliedRuleID      *uint64          `json:"applied_rule_id,omitempty"`
	RuleType           catalog.RuleType `json:"rule_type,omitempty"`
	Overridden         bool             `json:"overridden"`
	OverrideReason     string           `json:"override_reason,omitempty"`
	RequiresProduction bool             `json:"requires_production"`
}

func toPriceResponse(product *catalog.Product, quantity int64, res domain.Result) *PriceResponse {
	return &PriceResponse{
		ProductID:          product.ID,
		SKU:                product.SKU,
		Quantity:           quantity,
		UnitPrice:          res.UnitPrice,
		LineTotal:          res.LineTotal,
		AppliedRuleID:      res.AppliedRuleID,
		RuleType:           res.RuleType,
		Overridden:         res.Overridden,
		OverrideReason:     res.OverrideReason,
		RequiresProduction: product.RequiresProduction(),
	}
}
