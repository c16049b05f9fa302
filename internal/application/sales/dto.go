package sales

import (
	"time"

	"github.com/printshop/backend/internal/application/pricing"
	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/catalog"
	pricingdomain "github.com/printshop/backend/internal/domain/pricing"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ==================== Order DTOs ====================

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID   *uint64             `json:"customer_id"`
	OrderType    sales.OrderType     `json:"order_type" validate:"required"`
	PaymentTerms sales.PaymentTerms  `json:"payment_terms"`
	Notes        string              `json:"notes" validate:"max=2000"`
	Items        []pricing.LineInput `json:"items" validate:"dive"`
}

// ApplyDiscountRequest represents a request to discount an order. Exactly one
// of Amount and Percent is set.
type ApplyDiscountRequest struct {
	Amount  *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	Percent *decimal.Decimal `json:"percent" validate:"omitempty,gte=0,lte=100"`
	Reason  string           `json:"reason" validate:"required,max=500"`
}

// UpdateOrderStatusRequest represents a request to move an order
type UpdateOrderStatusRequest struct {
	Status sales.OrderStatus `json:"status" validate:"required"`
	Notes  string            `json:"notes" validate:"max=2000"`
	Reason string            `json:"reason" validate:"max=500"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID                 uint64                    `json:"id"`
	ProductID          *uint64                   `json:"product_id,omitempty"`
	ItemType           catalog.ProductType       `json:"item_type"`
	Description        string                    `json:"description"`
	Quantity           int64                     `json:"quantity"`
	Dimensions         *pricingdomain.Dimensions `json:"dimensions,omitempty"`
	UnitPrice          decimal.Decimal           `json:"unit_price"`
	LineTotal          decimal.Decimal           `json:"line_total"`
	PricingRuleID      *uint64                   `json:"pricing_rule_id,omitempty"`
	OverrideReason     string                    `json:"override_reason,omitempty"`
	RequiresProduction bool                      `json:"requires_production"`
}

// StatusHistoryResponse is one row of an order's audit trail
type StatusHistoryResponse struct {
	FromStatus *sales.OrderStatus `json:"from_status"`
	ToStatus   sales.OrderStatus  `json:"to_status"`
	ChangedBy  shared.UserID      `json:"changed_by"`
	Action     string             `json:"action"`
	Notes      string             `json:"notes,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uint64                  `json:"id"`
	OrderNumber     string                  `json:"order_number"`
	CustomerID      *uint64                 `json:"customer_id,omitempty"`
	OrderType       sales.OrderType         `json:"order_type"`
	Status          sales.OrderStatus       `json:"status"`
	PaymentTerms    sales.PaymentTerms      `json:"payment_terms"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	Discount        decimal.Decimal         `json:"discount"`
	DiscountPercent *decimal.Decimal        `json:"discount_percent,omitempty"`
	DiscountReason  string                  `json:"discount_reason,omitempty"`
	TaxRate         decimal.Decimal         `json:"tax_rate"`
	Tax             decimal.Decimal         `json:"tax"`
	Total           decimal.Decimal         `json:"total"`
	PaidAmount      decimal.Decimal         `json:"paid_amount"`
	Balance         decimal.Decimal         `json:"balance"`
	CreatedBy       shared.UserID           `json:"created_by"`
	ApprovedBy      *shared.UserID          `json:"approved_by,omitempty"`
	QuotationID     *uint64                 `json:"quotation_id,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	CancelReason    string                  `json:"cancel_reason,omitempty"`
	Version         int                     `json:"version"`
	Items           []OrderItemResponse     `json:"items"`
	History         []StatusHistoryResponse `json:"history,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// ApprovalResponse represents an approval request in API responses
type ApprovalResponse struct {
	ID          uint64               `json:"id"`
	Type        approval.RequestType `json:"type"`
	Status      approval.Status      `json:"status"`
	OrderID     *uint64              `json:"order_id,omitempty"`
	CustomerID  *uint64              `json:"customer_id,omitempty"`
	RequestedBy shared.UserID        `json:"requested_by"`
	ApprovedBy  *shared.UserID       `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time           `json:"approved_at,omitempty"`
	RequestData approval.RequestData `json:"request_data"`
	Notes       string               `json:"approver_notes,omitempty"`
	ConsumedAt  *time.Time           `json:"consumed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// DiscountResponse is either the discounted order or, when the discount needs
// authority the caller does not have, the pending approval request.
type DiscountResponse struct {
	Order            *OrderResponse    `json:"order,omitempty"`
	ApprovalRequired bool              `json:"approval_required"`
	Approval         *ApprovalResponse `json:"approval,omitempty"`
}

// ToOrderItemResponse converts a domain order item to a response
func ToOrderItemResponse(item *sales.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:                 item.ID,
		ProductID:          item.ProductID,
		ItemType:           item.ItemType,
		Description:        item.Description,
		Quantity:           item.Quantity,
		Dimensions:         item.Dimensions,
		UnitPrice:          item.UnitPrice,
		LineTotal:          item.LineTotal,
		PricingRuleID:      item.PricingRuleID,
		OverrideReason:     item.OverrideReason,
		RequiresProduction: item.RequiresProduction,
	}
}

// ToOrderResponse converts a domain order to a response
func ToOrderResponse(o *sales.Order, history []sales.OrderStatusHistory) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i := range o.Items {
		items[i] = ToOrderItemResponse(&o.Items[i])
	}
	resp := &OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		OrderType:       o.OrderType,
		Status:          o.Status,
		PaymentTerms:    o.PaymentTerms,
		Subtotal:        o.Subtotal,
		Discount:        o.DiscountAmount,
		DiscountPercent: o.DiscountPercent,
		DiscountReason:  o.DiscountReason,
		TaxRate:         o.TaxRate,
		Tax:             o.Tax,
		Total:           o.Total,
		PaidAmount:      o.PaidAmount,
		Balance:         o.Balance,
		CreatedBy:       o.CreatedBy,
		ApprovedBy:      o.ApprovedBy,
		QuotationID:     o.QuotationID,
		Notes:           o.Notes,
		CancelReason:    o.CancelReason,
		Version:         o.Version,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, h := range history {
		resp.History = append(resp.History, StatusHistoryResponse{
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			ChangedBy:  h.ChangedBy,
			Action:     h.Action,
			Notes:      h.Notes,
			CreatedAt:  h.CreatedAt,
		})
	}
	return resp
}

// ToApprovalResponse converts an approval request to a response
func ToApprovalResponse(r *approval.Request) *ApprovalResponse {
	return &ApprovalResponse{
		ID:          r.ID,
		Type:        r.Type,
		Status:      r.Status,
		OrderID:     r.OrderID,
		CustomerID:  r.CustomerID,
		RequestedBy: r.RequestedBy,
		ApprovedBy:  r.ApprovedBy,
		ApprovedAt:  r.ApprovedAt,
		RequestData: r.RequestData,
		Notes:       r.ApproverNotes,
		ConsumedAt:  r.ConsumedAt,
		CreatedAt:   r.CreatedAt,
	}
}

// ==================== Payment DTOs ====================

// RecordPaymentRequest represents money received against an order, an invoice or both
type RecordPaymentRequest struct {
	OrderID   *uint64             `json:"order_id"`
	InvoiceID *uint64             `json:"invoice_id"`
	Amount    decimal.Decimal     `json:"amount"`
	Method    sales.PaymentMethod `json:"payment_method" validate:"required"`
	Reference string              `json:"reference" validate:"max=100"`
	Notes     string              `json:"notes" validate:"max=2000"`
}

// PaymentResponse represents a recorded payment and the documents it moved
type PaymentResponse struct {
	ID            uint64              `json:"id"`
	PaymentNumber string              `json:"payment_number"`
	OrderID       *uint64             `json:"order_id,omitempty"`
	InvoiceID     *uint64             `json:"invoice_id,omitempty"`
	CustomerID    *uint64             `json:"customer_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Method        sales.PaymentMethod `json:"payment_method"`
	Reference     *string             `json:"reference,omitempty"`
	PaymentDate   time.Time           `json:"payment_date"`
	ReceivedBy    shared.UserID       `json:"received_by"`
	Notes         string              `json:"notes,omitempty"`
	Order         *OrderResponse      `json:"order,omitempty"`
	Invoice       *InvoiceResponse    `json:"invoice,omitempty"`
}

// ToPaymentResponse converts a payment to a response
func ToPaymentResponse(p *sales.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.ID,
		PaymentNumber: p.PaymentNumber,
		OrderID:       p.OrderID,
		InvoiceID:     p.InvoiceID,
		CustomerID:    p.CustomerID,
		Amount:        p.Amount,
		Method:        p.Method,
		Reference:     p.Reference,
		PaymentDate:   p.PaymentDate,
		ReceivedBy:    p.ReceivedBy,
		Notes:         p.Notes,
	}
}

// ==================== Invoice DTOs ====================

// CreateInvoiceRequest represents a request to invoice an order
type CreateInvoiceRequest struct {
	OrderID   uint64              `json:"order_id" validate:"required"`
	Overrides []ItemOverrideInput `json:"item_overrides" validate:"dive"`
}

// ItemOverrideInput adjusts one billed line
type ItemOverrideInput struct {
	OrderItemID uint64          `json:"order_item_id" validate:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Reason      string          `json:"reason" validate:"required,max=500"`
}

// DisputeInvoiceRequest puts an invoice on hold
type DisputeInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uint64              `json:"id"`
	InvoiceNumber string              `json:"invoice_number"`
	OrderID       *uint64             `json:"order_id,omitempty"`
	CustomerID    *uint64             `json:"customer_id,omitempty"`
	Status        sales.InvoiceStatus `json:"status"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	PaidAmount    decimal.Decimal     `json:"paid_amount"`
	Balance       decimal.Decimal     `json:"balance"`
	IssueDate     *time.Time          `json:"issue_date,omitempty"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	Lines         sales.InvoiceLines  `json:"lines"`
	ItemOverrides sales.ItemOverrides `json:"item_overrides,omitempty"`
	DisputeReason string              `json:"dispute_reason,omitempty"`
	Version       int                 `json:"version"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ToInvoiceResponse converts an invoice to a response
func ToInvoiceResponse(inv *sales.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		OrderID:       inv.OrderID,
		CustomerID:    inv.CustomerID,
		Status:        inv.Status,
		Subtotal:      inv.Subtotal,
		Discount:      inv.DiscountAmount,
		Tax:           inv.Tax,
		Total:         inv.Total,
		PaidAmount:    inv.PaidAmount,
		Balance:       inv.Balance,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Lines:         inv.Lines,
		ItemOverrides: inv.ItemOverrides,
		DisputeReason: inv.DisputeReason,
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt,
	}
}

// ==================== Quotation DTOs ====================

// CreateQuotationRequest represents a request to create a quotation
type CreateQuotationRequest struct {
	CustomerID   *uint64               `json:"customer_id"`
	PaymentTerms sales.PaymentTerms    `json:"payment_terms"`
	ValidUntil   *time.Time            `json:"valid_until"`
	Notes        string                `json:"notes" validate:"max=2000"`
	Items        []pricing.LineInput   `json:"items" validate:"dive"`
	Discount     *ApplyDiscountRequest `json:"discount"`
}

// UpdateQuotationStatusRequest represents a request to move a quotation
type UpdateQuotationStatusRequest struct {
	Status sales.QuotationStatus `json:"status" validate:"required"`
}

// ConvertQuotationRequest represents a request to turn a quotation into an order
type ConvertQuotationRequest struct {
	OrderType sales.OrderType `json:"order_type"`
	// Reprice resolves every line again against today's rules instead of
	// keeping the quoted prices. Manual overrides are carried either way.
	Reprice bool `json:"reprice"`
}

// QuotationItemResponse represents a quotation line
type QuotationItemResponse struct {
	ID             uint64          `json:"id"`
	ProductID      *uint64         `json:"product_id,omitempty"`
	Description    string          `json:"description"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	PricingRuleID  *uint64         `json:"pricing_rule_id,omitempty"`
	OverrideReason string          `json:"override_reason,omitempty"`
}

// QuotationResponse represents a quotation in API responses
type QuotationResponse struct {
	ID               uint64                  `json:"id"`
	QuotationNumber  string                  `json:"quotation_number"`
	CustomerID       *uint64                 `json:"customer_id,omitempty"`
	Status           sales.QuotationStatus   `json:"status"`
	PaymentTerms     sales.PaymentTerms      `json:"payment_terms"`
	ValidUntil       *time.Time              `json:"valid_until,omitempty"`
	ConvertedOrderID *uint64                 `json:"converted_order_id,omitempty"`
	Subtotal         decimal.Decimal         `json:"subtotal"`
	Discount         decimal.Decimal         `json:"discount"`
	Tax              decimal.Decimal         `json:"tax"`
	Total            decimal.Decimal         `json:"total"`
	Items            []QuotationItemResponse `json:"items"`
	Version          int                     `json:"version"`
	CreatedAt        time.Time               `json:"created_at"`
}

// ToQuotationResponse converts a quotation to a response
func ToQuotationResponse(q *sales.Quotation) *QuotationResponse {
	items := make([]QuotationItemResponse, len(q.Items))
	for i, item := range q.Items {
		items[i] = QuotationItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			LineTotal:      item.LineTotal,
			PricingRuleID:  item.PricingRuleID,
			OverrideReason: item.OverrideReason,
		}
	}
	return &QuotationResponse{
		ID:               q.ID,
		QuotationNumber:  q.QuotationNumber,
		CustomerID:       q.CustomerID,
		Status:           q.Status,
		PaymentTerms:     q.PaymentTerms,
		ValidUntil:       q.ValidUntil,
		ConvertedOrderID: q.ConvertedOrderID,
		Subtotal:         q.Subtotal,
		Discount:         q.DiscountAmount,
		Tax:              q.Tax,
		Total:            q.Total,
		Items:            items,
		Version:          q.Version,
		CreatedAt:        q.CreatedAt,
	}
}
