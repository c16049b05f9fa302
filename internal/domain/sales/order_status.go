package sales

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "DRAFT"
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusInProduction   OrderStatus = "IN_PRODUCTION"
	OrderStatusReady          OrderStatus = "READY"
	OrderStatusReleased       OrderStatus = "RELEASED"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusPendingPayment, OrderStatusPaid, OrderStatusInProduction,
		OrderStatusReady, OrderStatusReleased, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsEditable reports whether items and discount may still change
func (s OrderStatus) IsEditable() bool {
	return s == OrderStatusDraft || s == OrderStatusPendingPayment
}

// CanTransitionTo checks if the status can transition to the target status.
// The edges form a DAG; CANCELLED is reachable from every non-terminal state.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if target == OrderStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusPendingPayment
	case OrderStatusPendingPayment:
		return target == OrderStatusPaid
	case OrderStatusPaid:
		return target == OrderStatusInProduction || target == OrderStatusReady
	case OrderStatusInProduction:
		return target == OrderStatusReady
	case OrderStatusReady:
		return target == OrderStatusReleased
	case OrderStatusReleased:
		return target == OrderStatusCompleted
	}
	return false
}

// OrderType is the channel an order came in through
type OrderType string

const (
	OrderTypeCounter   OrderType = "counter"
	OrderTypeOnline    OrderType = "online"
	OrderTypeCorporate OrderType = "corporate"
)

// IsValid checks if the order type is valid
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeCounter, OrderTypeOnline, OrderTypeCorporate:
		return true
	}
	return false
}

// PaymentTerms is how an order is expected to be settled
type PaymentTerms string

const (
	PaymentTermsImmediate PaymentTerms = "immediate"
	PaymentTermsCredit30  PaymentTerms = "credit_30"
	PaymentTermsCredit60  PaymentTerms = "credit_60"
)

// IsValid checks if the payment terms are valid
func (p PaymentTerms) IsValid() bool {
	switch p {
	case PaymentTermsImmediate, PaymentTermsCredit30, PaymentTermsCredit60:
		return true
	}
	return false
}

// IsDeferred reports whether the order relies on credit
func (p PaymentTerms) IsDeferred() bool {
	return p == PaymentTermsCredit30 || p == PaymentTermsCredit60
}
