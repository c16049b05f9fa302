package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/ledger"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Order actions written to the status history
const (
	ActionCreated         = "created"
	ActionSubmitted       = "submitted"
	ActionPaymentReceived = "payment_received"
	ActionCreditApproved  = "credit_approved"
	ActionProduction      = "production_started"
	ActionJobsCompleted   = "jobs_completed"
	ActionReady           = "ready"
	ActionReleased        = "released"
	ActionCompleted       = "completed"
	ActionCancelled       = "cancelled"
)

// OrderStatusHistory is an append-only record of one order transition.
// FromStatus is nil only for the creation row.
type OrderStatusHistory struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement"`
	OrderID    uint64        `gorm:"not null;index"`
	FromStatus *OrderStatus  `gorm:"type:varchar(20)"`
	ToStatus   OrderStatus   `gorm:"type:varchar(20);not null"`
	ChangedBy  shared.UserID `gorm:"not null"`
	Action     string        `gorm:"type:varchar(50);not null"`
	Notes      string        `gorm:"type:text"`
	CreatedAt  time.Time     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// Order is the aggregate root of the fulfillment flow. Its figures are always
// recomputed from its items, discount and payments.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber  string       `gorm:"type:varchar(30);not null;uniqueIndex"`
	CustomerID   *uint64      `gorm:"index"`
	OrderType    OrderType    `gorm:"type:varchar(20);not null"`
	Status       OrderStatus  `gorm:"type:varchar(20);not null;index"`
	PaymentTerms PaymentTerms `gorm:"type:varchar(20);not null"`
	ledger.Figures
	CreatedBy    shared.UserID  `gorm:"not null"`
	ApprovedBy   *shared.UserID `gorm:"column:approved_by"`
	QuotationID  *uint64        `gorm:"index"`
	Notes        string         `gorm:"type:text"`
	CancelReason string         `gorm:"type:varchar(500)"`
	Items        []OrderItem    `gorm:"foreignKey:OrderID;references:ID"`

	pendingHistory []OrderStatusHistory
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a DRAFT order and its creation history row
func NewOrder(orderNumber string, customerID *uint64, orderType OrderType, terms PaymentTerms,
	taxRate decimal.Decimal, createdBy shared.UserID, notes string, now time.Time) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewValidationError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if !orderType.IsValid() {
		return nil, shared.NewValidationError("INVALID_ORDER_TYPE", "Order type must be counter, online or corporate")
	}
	if !terms.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_TERMS", "Payment terms must be immediate, credit_30 or credit_60")
	}
	if terms.IsDeferred() && customerID == nil {
		return nil, shared.NewValidationError("CUSTOMER_REQUIRED", "Credit terms need a customer")
	}
	if createdBy == 0 {
		return nil, shared.NewValidationError("ACTOR_REQUIRED", "Every order change needs a user")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		OrderType:         orderType,
		Status:            OrderStatusDraft,
		PaymentTerms:      terms,
		Figures:           ledger.NewFigures(taxRate),
		CreatedBy:         createdBy,
		Notes:             notes,
		Items:             make([]OrderItem, 0),
	}
	order.pendingHistory = append(order.pendingHistory, OrderStatusHistory{
		ToStatus:  OrderStatusDraft,
		ChangedBy: createdBy,
		Action:    ActionCreated,
		Notes:     notes,
		CreatedAt: now,
	})
	return order, nil
}

// PendingHistory returns history rows not yet persisted
func (o *Order) PendingHistory() []OrderStatusHistory {
	return o.pendingHistory
}

// ClearPendingHistory is called by the repository once the rows are written
func (o *Order) ClearPendingHistory() {
	o.pendingHistory = nil
}

// ItemLineTotals returns the line totals the ledger sums
func (o *Order) ItemLineTotals() []decimal.Decimal {
	return lineTotals(o.Items)
}

// HasProductionItems reports whether any line goes through production
func (o *Order) HasProductionItems() bool {
	for _, item := range o.Items {
		if item.RequiresProduction {
			return true
		}
	}
	return false
}

// ProductionItems returns the lines that need a service job
func (o *Order) ProductionItems() []OrderItem {
	out := make([]OrderItem, 0)
	for _, item := range o.Items {
		if item.RequiresProduction {
			out = append(out, item)
		}
	}
	return out
}

// FindItem returns the item with the given ID
func (o *Order) FindItem(itemID uint64) (*OrderItem, error) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], nil
		}
	}
	return nil, shared.NewNotFoundError("OrderItem", itemID).WithDetail("order_id", o.ID)
}

// EnsureEditable fails unless items and discount may still change
func (o *Order) EnsureEditable() error {
	if !o.Status.IsEditable() {
		return shared.NewDomainError(shared.KindInvalidTransition, "ORDER_NOT_EDITABLE",
			fmt.Sprintf("order %s cannot be changed in %s status", o.OrderNumber, o.Status)).
			WithDetail("order_id", o.ID).
			WithDetail("status", string(o.Status))
	}
	return nil
}

// recompute re-derives the figures and restores items when the ledger refuses.
func (o *Order) recompute(previous []OrderItem, discount ledger.Discount, now time.Time) error {
	next, err := o.Figures.Recomputed(o.ItemLineTotals(), discount)
	if err != nil {
		o.Items = previous
		return err
	}
	o.Figures = next
	o.Touch(now)
	return nil
}

func (o *Order) snapshotItems() []OrderItem {
	cp := make([]OrderItem, len(o.Items))
	copy(cp, o.Items)
	return cp
}

// AddItem appends a priced line and recomputes the figures
func (o *Order) AddItem(details ItemDetails, now time.Time) (*OrderItem, error) {
	if err := o.EnsureEditable(); err != nil {
		return nil, err
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}
	previous := o.snapshotItems()
	item := OrderItem{BaseEntity: shared.NewBaseEntityAt(now), OrderID: o.ID, ItemDetails: details}
	o.Items = append(o.Items, item)
	if err := o.recompute(previous, o.Figures.Discount(), now); err != nil {
		return nil, err
	}
	return &o.Items[len(o.Items)-1], nil
}

// UpdateItem replaces the priced content of an existing line
func (o *Order) UpdateItem(itemID uint64, details ItemDetails, now time.Time) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	if err := details.Validate(); err != nil {
		return err
	}
	previous := o.snapshotItems()
	item, err := o.FindItem(itemID)
	if err != nil {
		return err
	}
	item.ItemDetails = details
	item.Touch(now)
	return o.recompute(previous, o.Figures.Discount(), now)
}

// RemoveItem drops a line and recomputes the figures
func (o *Order) RemoveItem(itemID uint64, now time.Time) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	previous := o.snapshotItems()
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			o.Items = append(o.Items[:idx:idx], o.Items[idx+1:]...)
			return o.recompute(previous, o.Figures.Discount(), now)
		}
	}
	return shared.NewNotFoundError("OrderItem", itemID).WithDetail("order_id", o.ID)
}

// ApplyDiscount sets the order discount. Authority checks happen before this call.
func (o *Order) ApplyDiscount(discount ledger.Discount, now time.Time) error {
	if err := o.EnsureEditable(); err != nil {
		return err
	}
	if strings.TrimSpace(discount.Reason) == "" && !discount.IsZero() {
		return shared.NewValidationError("DISCOUNT_REASON_REQUIRED", "A discount needs a reason")
	}
	return o.recompute(o.snapshotItems(), discount, now)
}

// ApplyPayment adds amount to the paid side. A positive payment that settles
// the balance moves PENDING_PAYMENT to PAID and RELEASED to COMPLETED.
// Negative amounts are compensating refunds. A completed order still takes
// money against its outstanding balance; a cancelled one only refunds.
func (o *Order) ApplyPayment(amount decimal.Decimal, actor shared.UserID, now time.Time) error {
	if amount.IsZero() {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment amount cannot be zero")
	}
	if actor == 0 {
		return shared.NewValidationError("ACTOR_REQUIRED", "Every order change needs a user")
	}
	if o.Status == OrderStatusDraft ||
		(amount.IsPositive() && o.Status == OrderStatusCancelled) {
		return shared.NewDomainError(shared.KindInvalidTransition, "ORDER_NOT_PAYABLE",
			fmt.Sprintf("order %s cannot take payments in %s status", o.OrderNumber, o.Status)).
			WithDetail("order_id", o.ID).
			WithDetail("status", string(o.Status))
	}
	if amount.IsNegative() && o.PaidAmount.Add(amount).IsNegative() {
		return shared.NewValidationError("REFUND_EXCEEDS_PAID", "Refund cannot exceed the amount paid").
			WithDetail("order_id", o.ID).
			WithDetail("paid_amount", o.PaidAmount.String()).
			WithDetail("amount", amount.String())
	}

	o.Figures = o.Figures.WithPayment(amount)
	o.Touch(now)
	if !amount.IsPositive() || !o.IsSettled() {
		return nil
	}
	switch o.Status {
	case OrderStatusPendingPayment:
		return o.transition(OrderStatusPaid, actor, ActionPaymentReceived, "", now)
	case OrderStatusReleased:
		return o.transition(OrderStatusCompleted, actor, ActionPaymentReceived, "", now)
	}
	return nil
}

// Submit finalises the items: DRAFT → PENDING_PAYMENT
func (o *Order) Submit(actor shared.UserID, notes string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusPendingPayment) {
		return o.invalidTransition(OrderStatusPendingPayment)
	}
	if len(o.Items) == 0 {
		return shared.NewValidationError("ORDER_HAS_NO_ITEMS", "An order needs at least one item before submission").
			WithDetail("order_id", o.ID)
	}
	for _, item := range o.Items {
		if !item.IsPriced() {
			return shared.NewValidationError("ITEM_NOT_PRICED",
				fmt.Sprintf("item %d has neither a pricing rule nor an override reason", item.ID)).
				WithDetail("order_id", o.ID).
				WithDetail("order_item_id", item.ID)
		}
	}
	return o.transition(OrderStatusPendingPayment, actor, ActionSubmitted, notes, now)
}

// MarkPaid moves PENDING_PAYMENT to PAID on explicit request. Without credit
// the balance must already be settled; with credit the caller has consulted the
// credit guard and approver records who authorised it.
func (o *Order) MarkPaid(actor shared.UserID, viaCredit bool, notes string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusPaid) {
		return o.invalidTransition(OrderStatusPaid)
	}
	if viaCredit {
		if !o.PaymentTerms.IsDeferred() {
			return shared.NewDomainError(shared.KindInvalidTransition, "CREDIT_TERMS_REQUIRED",
				"Only orders on credit terms can be released for production unpaid").
				WithDetail("order_id", o.ID).
				WithDetail("payment_terms", string(o.PaymentTerms))
		}
		if err := o.transition(OrderStatusPaid, actor, ActionCreditApproved, notes, now); err != nil {
			return err
		}
		approver := actor
		o.ApprovedBy = &approver
		return nil
	}
	if !o.IsSettled() {
		return shared.NewDomainError(shared.KindInvalidTransition, "BALANCE_OUTSTANDING",
			fmt.Sprintf("order %s still has a balance of %s", o.OrderNumber, o.Balance)).
			WithDetail("order_id", o.ID).
			WithDetail("balance", o.Balance.String())
	}
	return o.transition(OrderStatusPaid, actor, ActionPaymentReceived, notes, now)
}

// StartProduction moves PAID to IN_PRODUCTION. Jobs are spawned by the caller.
func (o *Order) StartProduction(actor shared.UserID, notes string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusInProduction) {
		return o.invalidTransition(OrderStatusInProduction)
	}
	if !o.HasProductionItems() {
		return shared.NewDomainError(shared.KindInvalidTransition, "NO_PRODUCTION_ITEMS",
			"Order has no items that require production").
			WithDetail("order_id", o.ID)
	}
	return o.transition(OrderStatusInProduction, actor, ActionProduction, notes, now)
}

// MarkReady moves PAID (without production items) or IN_PRODUCTION (with no
// outstanding jobs) to READY.
func (o *Order) MarkReady(actor shared.UserID, outstandingJobs int, notes string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusReady) {
		return o.invalidTransition(OrderStatusReady)
	}
	action := ActionReady
	switch o.Status {
	case OrderStatusPaid:
		if o.HasProductionItems() {
			return shared.NewDomainError(shared.KindInvalidTransition, "PRODUCTION_REQUIRED",
				"Order has items that must go through production").
				WithDetail("order_id", o.ID)
		}
	case OrderStatusInProduction:
		if outstandingJobs > 0 {
			return shared.NewDomainError(shared.KindInvalidTransition, "JOBS_OUTSTANDING",
				fmt.Sprintf("%d service jobs are not completed", outstandingJobs)).
				WithDetail("order_id", o.ID).
				WithDetail("outstanding_jobs", outstandingJobs)
		}
		action = ActionJobsCompleted
	}
	return o.transition(OrderStatusReady, actor, action, notes, now)
}

// Release hands the goods over: READY → RELEASED
func (o *Order) Release(actor shared.UserID, notes string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusReleased) {
		return o.invalidTransition(OrderStatusReleased)
	}
	return o.transition(OrderStatusReleased, actor, ActionReleased, notes, now)
}

// Complete closes the order: RELEASED → COMPLETED
func (o *Order) Complete(actor shared.UserID, notes string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return o.invalidTransition(OrderStatusCompleted)
	}
	return o.transition(OrderStatusCompleted, actor, ActionCompleted, notes, now)
}

// Cancel ends the order. With money paid in, an approved cancel override is required.
func (o *Order) Cancel(actor shared.UserID, reason string, overrideApproved bool, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return o.invalidTransition(OrderStatusCancelled)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("CANCEL_REASON_REQUIRED", "Cancellation needs a reason")
	}
	if o.PaidAmount.IsPositive() && !overrideApproved {
		return shared.NewDomainError(shared.KindInsufficientApprovalAuthority, "CANCEL_REQUIRES_APPROVAL",
			fmt.Sprintf("order %s has %s paid; cancellation needs an approved cancel_override", o.OrderNumber, o.PaidAmount)).
			WithDetail("order_id", o.ID).
			WithDetail("paid_amount", o.PaidAmount.String())
	}
	o.CancelReason = reason
	return o.transition(OrderStatusCancelled, actor, ActionCancelled, reason, now)
}

// CheckTransition reports whether the edge from the current status to target exists.
func (o *Order) CheckTransition(to OrderStatus) error {
	if !o.Status.CanTransitionTo(to) {
		return o.invalidTransition(to)
	}
	return nil
}

func (o *Order) invalidTransition(to OrderStatus) error {
	return shared.NewInvalidTransitionError(AggregateTypeOrder, o.ID, string(o.Status), string(to)).
		WithDetail("order_number", o.OrderNumber)
}

// transition is the single place status changes; it writes exactly one history row.
func (o *Order) transition(to OrderStatus, actor shared.UserID, action, notes string, now time.Time) error {
	if !o.Status.CanTransitionTo(to) {
		return o.invalidTransition(to)
	}
	if actor == 0 {
		return shared.NewValidationError("ACTOR_REQUIRED", "Every order change needs a user")
	}
	from := o.Status
	o.Status = to
	o.Touch(now)
	o.pendingHistory = append(o.pendingHistory, OrderStatusHistory{
		OrderID:    o.ID,
		FromStatus: &from,
		ToStatus:   to,
		ChangedBy:  actor,
		Action:     action,
		Notes:      notes,
		CreatedAt:  now,
	})
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, to, actor, action))
	return nil
}
