package sales

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/ledger"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "draft"
	InvoiceStatusIssued   InvoiceStatus = "issued"
	InvoiceStatusPartial  InvoiceStatus = "partial"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusOverdue  InvoiceStatus = "overdue"
	InvoiceStatusDisputed InvoiceStatus = "disputed"
)

// IsOpen reports whether the invoice is issued and not yet settled
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPartial || s == InvoiceStatusOverdue
}

// InvoiceLine is a snapshot of a billed line
type InvoiceLine struct {
	OrderItemID *uint64         `json:"order_item_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ItemOverride adjusts the billed unit price of one order item on the invoice only.
type ItemOverride struct {
	OrderItemID uint64          `json:"order_item_id"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Reason      string          `json:"reason"`
}

// InvoiceLines is the JSONB snapshot of billed lines
type InvoiceLines []InvoiceLine

// ItemOverrides is the JSONB list of invoice-level price adjustments
type ItemOverrides []ItemOverride

// Value implements driver.Valuer for the JSONB column
func (l InvoiceLines) Value() (driver.Value, error) { return jsonValue(l) }

// Scan implements sql.Scanner for the JSONB column
func (l *InvoiceLines) Scan(value interface{}) error { return jsonScan(value, l) }

// Value implements driver.Valuer for the JSONB column
func (o ItemOverrides) Value() (driver.Value, error) { return jsonValue(o) }

// Scan implements sql.Scanner for the JSONB column
func (o *ItemOverrides) Scan(value interface{}) error { return jsonScan(value, o) }

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(value interface{}, dest any) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan JSONB column: unsupported type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dest)
}

// Invoice bills a customer for an order. It runs the same ledger as the order
// against its own snapshot of lines.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string        `gorm:"type:varchar(30);not null;uniqueIndex"`
	OrderID       *uint64       `gorm:"index"`
	CustomerID    *uint64       `gorm:"index"`
	Status        InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	ledger.Figures
	IssueDate     *time.Time
	DueDate       *time.Time    `gorm:"index"`
	Lines         InvoiceLines  `gorm:"type:jsonb;not null"`
	ItemOverrides ItemOverrides `gorm:"type:jsonb"`
	DisputeReason string        `gorm:"type:varchar(500)"`
	CreatedBy     shared.UserID `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoiceFromOrder snapshots the order's lines into a draft invoice. Payments
// already taken on the order carry over to the invoice.
func NewInvoiceFromOrder(invoiceNumber string, order *Order, overrides []ItemOverride, actor shared.UserID, now time.Time) (*Invoice, error) {
	if strings.TrimSpace(invoiceNumber) == "" {
		return nil, shared.NewValidationError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if order.Status == OrderStatusDraft || order.Status == OrderStatusCancelled {
		return nil, shared.NewDomainError(shared.KindInvalidTransition, "ORDER_NOT_INVOICEABLE",
			fmt.Sprintf("order %s cannot be invoiced in %s status", order.OrderNumber, order.Status)).
			WithDetail("order_id", order.ID)
	}
	if actor == 0 {
		return nil, shared.NewValidationError("ACTOR_REQUIRED", "An invoice needs the user who created it")
	}

	lines := make(InvoiceLines, len(order.Items))
	for i, item := range order.Items {
		id := item.ID
		lines[i] = InvoiceLine{
			OrderItemID: &id,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}
	orderID := order.ID
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		InvoiceNumber:     invoiceNumber,
		OrderID:           &orderID,
		CustomerID:        order.CustomerID,
		Status:            InvoiceStatusDraft,
		Figures:           ledger.NewFigures(order.TaxRate),
		Lines:             lines,
		ItemOverrides:     make(ItemOverrides, 0),
		CreatedBy:         actor,
	}
	inv.PaidAmount = order.PaidAmount

	discount := order.Figures.Discount()
	for _, ov := range overrides {
		if err := inv.applyOverride(ov); err != nil {
			return nil, err
		}
	}
	if err := inv.recompute(discount, now); err != nil {
		return nil, err
	}
	return inv, nil
}

// OverrideItem sets an invoice-only unit price for one line of a draft invoice.
func (inv *Invoice) OverrideItem(ov ItemOverride, now time.Time) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError(shared.KindInvalidTransition, "INVOICE_NOT_EDITABLE",
			"Only draft invoices can be adjusted").WithDetail("invoice_id", inv.ID)
	}
	prevLines := append(InvoiceLines(nil), inv.Lines...)
	prevOverrides := append(ItemOverrides(nil), inv.ItemOverrides...)
	if err := inv.applyOverride(ov); err != nil {
		return err
	}
	if err := inv.recompute(inv.Figures.Discount(), now); err != nil {
		inv.Lines = prevLines
		inv.ItemOverrides = prevOverrides
		return err
	}
	return nil
}

func (inv *Invoice) applyOverride(ov ItemOverride) error {
	if strings.TrimSpace(ov.Reason) == "" {
		return shared.NewValidationError("OVERRIDE_REASON_REQUIRED", "An invoice price override needs a reason")
	}
	if ov.UnitPrice.IsNegative() {
		return shared.NewValidationError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	for i := range inv.Lines {
		line := &inv.Lines[i]
		if line.OrderItemID == nil || *line.OrderItemID != ov.OrderItemID {
			continue
		}
		line.UnitPrice = shared.RoundMoney(ov.UnitPrice)
		line.LineTotal = shared.RoundMoney(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
		ov.UnitPrice = line.UnitPrice
		ov.Reason = strings.TrimSpace(ov.Reason)
		for j := range inv.ItemOverrides {
			if inv.ItemOverrides[j].OrderItemID == ov.OrderItemID {
				inv.ItemOverrides[j] = ov
				return nil
			}
		}
		inv.ItemOverrides = append(inv.ItemOverrides, ov)
		return nil
	}
	return shared.NewNotFoundError("OrderItem", ov.OrderItemID).WithDetail("invoice_number", inv.InvoiceNumber)
}

// LineTotals returns the billed line totals
func (inv *Invoice) LineTotals() []decimal.Decimal {
	out := make([]decimal.Decimal, len(inv.Lines))
	for i, l := range inv.Lines {
		out[i] = l.LineTotal
	}
	return out
}

func (inv *Invoice) recompute(discount ledger.Discount, now time.Time) error {
	next, err := inv.Figures.Recomputed(inv.LineTotals(), discount)
	if err != nil {
		return err
	}
	inv.Figures = next
	inv.Touch(now)
	return nil
}

// Issue sends a draft invoice. The due date is creditPeriodDays after issue;
// an invoice that is already settled goes straight to paid.
func (inv *Invoice) Issue(creditPeriodDays int, now time.Time) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidTransitionError(AggregateTypeInvoice, inv.ID, string(inv.Status), string(InvoiceStatusIssued))
	}
	if err := inv.recompute(inv.Figures.Discount(), now); err != nil {
		return err
	}
	issued := now
	due := now.AddDate(0, 0, creditPeriodDays)
	inv.IssueDate = &issued
	inv.DueDate = &due
	inv.Status = InvoiceStatusIssued
	if inv.IsSettled() {
		inv.Status = InvoiceStatusPaid
	} else if inv.PaidAmount.IsPositive() {
		inv.Status = InvoiceStatusPartial
	}
	return nil
}

// ApplyPayment records money against the invoice and advances its status.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal, now time.Time) error {
	if amount.IsZero() {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment amount cannot be zero")
	}
	if !inv.Status.IsOpen() && !(amount.IsNegative() && inv.Status == InvoiceStatusPaid) {
		return shared.NewDomainError(shared.KindInvalidTransition, "INVOICE_NOT_PAYABLE",
			fmt.Sprintf("invoice %s cannot take payments in %s status", inv.InvoiceNumber, inv.Status)).
			WithDetail("invoice_id", inv.ID).
			WithDetail("status", string(inv.Status))
	}
	if amount.IsNegative() && inv.PaidAmount.Add(amount).IsNegative() {
		return shared.NewValidationError("REFUND_EXCEEDS_PAID", "Refund cannot exceed the amount paid").
			WithDetail("invoice_id", inv.ID)
	}
	inv.Figures = inv.Figures.WithPayment(amount)
	inv.Touch(now)
	switch {
	case inv.IsSettled():
		inv.Status = InvoiceStatusPaid
	case inv.Status == InvoiceStatusOverdue:
		// stays overdue until settled
	case inv.PaidAmount.IsPositive():
		inv.Status = InvoiceStatusPartial
	default:
		inv.Status = InvoiceStatusIssued
	}
	return nil
}

// CarryPayment mirrors money taken on the source order. A draft invoice only
// accumulates it; an issued invoice advances as with ApplyPayment.
func (inv *Invoice) CarryPayment(amount decimal.Decimal, now time.Time) error {
	if inv.Status != InvoiceStatusDraft {
		return inv.ApplyPayment(amount, now)
	}
	if amount.IsNegative() && inv.PaidAmount.Add(amount).IsNegative() {
		return shared.NewValidationError("REFUND_EXCEEDS_PAID", "Refund cannot exceed the amount paid").
			WithDetail("invoice_id", inv.ID)
	}
	inv.Figures = inv.Figures.WithPayment(amount)
	inv.Touch(now)
	return nil
}

// IsOverdueAt reports whether the invoice is past due with money outstanding.
func (inv *Invoice) IsOverdueAt(at time.Time) bool {
	if !inv.Balance.IsPositive() {
		return false
	}
	if inv.Status == InvoiceStatusOverdue {
		return true
	}
	return (inv.Status == InvoiceStatusIssued || inv.Status == InvoiceStatusPartial) &&
		inv.DueDate != nil && at.After(*inv.DueDate)
}

// OutstandingBalance returns what is still owed
func (inv *Invoice) OutstandingBalance() decimal.Decimal {
	return inv.Balance
}

// MarkOverdue flags an open invoice past its due date. It reports whether the status changed.
func (inv *Invoice) MarkOverdue(now time.Time) bool {
	if inv.Status == InvoiceStatusOverdue || !inv.IsOverdueAt(now) {
		return false
	}
	inv.Status = InvoiceStatusOverdue
	inv.Touch(now)
	return true
}

// Dispute puts an unsettled invoice on hold
func (inv *Invoice) Dispute(reason string, now time.Time) error {
	if inv.Status == InvoiceStatusPaid || inv.Status == InvoiceStatusDisputed {
		return shared.NewInvalidTransitionError(AggregateTypeInvoice, inv.ID, string(inv.Status), string(InvoiceStatusDisputed))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("DISPUTE_REASON_REQUIRED", "A dispute needs a reason")
	}
	inv.Status = InvoiceStatusDisputed
	inv.DisputeReason = reason
	inv.Touch(now)
	return nil
}
