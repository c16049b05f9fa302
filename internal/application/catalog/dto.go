package catalog

import (
	"time"

	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ListQuery holds the paging and ordering shared by the catalog listings
type ListQuery struct {
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" validate:"omitempty,oneof=asc desc"`
}

func (q ListQuery) filter() shared.Filter {
	f := shared.Filter{
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
		Filters:  map[string]any{},
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = shared.DefaultPageSize
	}
	return f
}

// ProductListFilter selects products for the catalog listing
type ProductListFilter struct {
	ListQuery
	Type     catalog.ProductType `form:"type" validate:"omitempty,oneof=inventory service dimension"`
	IsActive *bool               `form:"is_active"`
	SKU      string              `form:"sku" validate:"max=50"`
}

// CustomerListFilter selects customers for the customer listing
type CustomerListFilter struct {
	ListQuery
	Type     partner.CustomerType `form:"type" validate:"omitempty,oneof=walk_in regular credit"`
	IsActive *bool                `form:"is_active"`
}

// ProductResponse is a product as listed in the catalog
type ProductResponse struct {
	ID                 uint64              `json:"id"`
	SKU                string              `json:"sku"`
	Name               string              `json:"name"`
	Type               catalog.ProductType `json:"type"`
	UnitCost           decimal.Decimal     `json:"unit_cost"`
	StockQty           decimal.Decimal     `json:"stock_qty"`
	IsActive           bool                `json:"is_active"`
	RequiresProduction bool                `json:"requires_production"`
	CreatedAt          time.Time           `json:"created_at"`
}

// CustomerResponse is a customer with its credit position
type CustomerResponse struct {
	ID               uint64               `json:"id"`
	Name             string               `json:"name"`
	Type             partner.CustomerType `json:"type"`
	Phone            string               `json:"phone,omitempty"`
	Email            string               `json:"email,omitempty"`
	CreditLimit      decimal.Decimal      `json:"credit_limit"`
	CreditBalance    decimal.Decimal      `json:"credit_balance"`
	CreditPeriodDays int                  `json:"credit_period_days"`
	IsActive         bool                 `json:"is_active"`
}

func toProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:                 p.ID,
		SKU:                p.SKU,
		Name:               p.Name,
		Type:               p.Type,
		UnitCost:           p.UnitCost,
		StockQty:           p.StockQty,
		IsActive:           p.IsActive,
		RequiresProduction: p.RequiresProduction(),
		CreatedAt:          p.CreatedAt,
	}
}

func toCustomerResponse(c *partner.Customer) CustomerResponse {
	return CustomerResponse{
		ID:               c.ID,
		Name:             c.Name,
		Type:             c.Type,
		Phone:            c.Phone,
		Email:            c.Email,
		CreditLimit:      c.CreditLimit,
		CreditBalance:    c.CreditBalance,
		CreditPeriodDays: c.CreditPeriodDays,
		IsActive:         c.IsActive,
	}
}
