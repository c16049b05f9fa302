package sales

import (
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeOrder     = "Order"
	AggregateTypeInvoice   = "Invoice"
	AggregateTypePayment   = "Payment"
	AggregateTypeQuotation = "Quotation"
)

// Event type constants
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
	EventTypePaymentRecorded    = "payment.recorded"
)

// OrderCreatedEvent is raised once a new order has been stored
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	OrderType   OrderType       `json:"order_type"`
	CustomerID  *uint64         `json:"customer_id,omitempty"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
	CreatedBy   shared.UserID   `json:"created_by"`
	QuotationID *uint64         `json:"quotation_id,omitempty"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeOrderCreated, AggregateTypeOrder, o.ID, o.CreatedAt),
		OrderNumber:     o.OrderNumber,
		OrderType:       o.OrderType,
		CustomerID:      o.CustomerID,
		Total:           o.Total,
		ItemCount:       len(o.Items),
		CreatedBy:       o.CreatedBy,
		QuotationID:     o.QuotationID,
	}
}

// OrderStatusChangedEvent is raised on every order transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	FromStatus  OrderStatus     `json:"from_status"`
	ToStatus    OrderStatus     `json:"to_status"`
	Action      string          `json:"action"`
	ChangedBy   shared.UserID   `json:"changed_by"`
	Balance     decimal.Decimal `json:"balance"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from, to OrderStatus, actor shared.UserID, action string) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID, o.UpdatedAt),
		OrderNumber:     o.OrderNumber,
		FromStatus:      from,
		ToStatus:        to,
		Action:          action,
		ChangedBy:       actor,
		Balance:         o.Balance,
	}
}

// PaymentRecordedEvent is raised once a payment has been stored
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	OrderID       *uint64         `json:"order_id,omitempty"`
	InvoiceID     *uint64         `json:"invoice_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	ReceivedBy    shared.UserID   `json:"received_by"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypePaymentRecorded, AggregateTypePayment, p.ID, p.CreatedAt),
		PaymentNumber:   p.PaymentNumber,
		OrderID:         p.OrderID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		Method:          p.Method,
		ReceivedBy:      p.ReceivedBy,
	}
}
