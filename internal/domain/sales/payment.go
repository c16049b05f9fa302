package sales

import (
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how money was received
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCredit       PaymentMethod = "credit"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCredit:
		return true
	}
	return false
}

// Payment is an immutable receipt of money against an order, an invoice or
// both. A refund is a new payment with a negative amount.
type Payment struct {
	shared.BaseEntity
	PaymentNumber string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	InvoiceID     *uint64         `gorm:"index"`
	OrderID       *uint64         `gorm:"index"`
	CustomerID    *uint64         `gorm:"index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Method        PaymentMethod   `gorm:"column:payment_method;type:varchar(20);not null"`
	Reference     *string         `gorm:"type:varchar(100);uniqueIndex"`
	PaymentDate   time.Time       `gorm:"not null"`
	ReceivedBy    shared.UserID   `gorm:"not null"`
	Notes         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// PaymentInput carries the fields of a new payment
type PaymentInput struct {
	PaymentNumber string
	InvoiceID     *uint64
	OrderID       *uint64
	CustomerID    *uint64
	Amount        decimal.Decimal
	Method        PaymentMethod
	Reference     string
	Notes         string
	ReceivedBy    shared.UserID
}

// NewPayment validates and creates a payment dated now
func NewPayment(in PaymentInput, now time.Time) (*Payment, error) {
	if strings.TrimSpace(in.PaymentNumber) == "" {
		return nil, shared.NewValidationError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if in.InvoiceID == nil && in.OrderID == nil {
		return nil, shared.NewValidationError("PAYMENT_TARGET_REQUIRED", "A payment must reference an order or an invoice")
	}
	if in.Amount.IsZero() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount cannot be zero")
	}
	if !in.Method.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_METHOD", "Payment method must be cash, card, bank_transfer or credit")
	}
	if in.ReceivedBy == 0 {
		return nil, shared.NewValidationError("ACTOR_REQUIRED", "A payment needs the user who received it")
	}
	notes := strings.TrimSpace(in.Notes)
	if in.Amount.IsNegative() && notes == "" {
		return nil, shared.NewValidationError("REFUND_NOTES_REQUIRED", "A refund needs notes explaining it")
	}
	if !shared.RoundMoney(in.Amount).Equal(in.Amount) {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount has more than two decimal places")
	}

	p := &Payment{
		BaseEntity:    shared.NewBaseEntityAt(now),
		PaymentNumber: in.PaymentNumber,
		InvoiceID:     in.InvoiceID,
		OrderID:       in.OrderID,
		CustomerID:    in.CustomerID,
		Amount:        in.Amount,
		Method:        in.Method,
		PaymentDate:   now,
		ReceivedBy:    in.ReceivedBy,
		Notes:         notes,
	}
	if ref := strings.TrimSpace(in.Reference); ref != "" {
		p.Reference = &ref
	}
	return p, nil
}

// IsRefund reports whether the payment compensates an earlier one
func (p *Payment) IsRefund() bool {
	return p.Amount.IsNegative()
}
