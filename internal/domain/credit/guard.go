// Package credit decides whether a customer may take on a credit-reliant commitment.
package credit

import (
	"fmt"
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Denial reasons reported by the guard.
const (
	ReasonLimitExceeded  = "CREDIT_LIMIT_EXCEEDED"
	ReasonOverdueInvoice = "OVERDUE_INVOICE"
)

// Receivable is an open invoice of the customer as the guard sees it.
type Receivable interface {
	GetID() uint64
	OutstandingBalance() decimal.Decimal
	IsOverdueAt(at time.Time) bool
}

// Decision is the guard's verdict. Reasons is empty when allowed.
type Decision struct {
	Allowed         bool
	Reasons         []string
	CustomerID      uint64
	CreditLimit     decimal.Decimal
	CreditBalance   decimal.Decimal
	RequestedAmount decimal.Decimal
	OverdueInvoices []uint64
}

// Err returns nil when allowed, otherwise a CREDIT_DENIED error carrying the figures.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return shared.NewDomainError(shared.KindCreditDenied, d.Reasons[0],
		fmt.Sprintf("credit denied for customer %d: %s", d.CustomerID, strings.Join(d.Reasons, ", "))).
		WithDetail("customer_id", d.CustomerID).
		WithDetail("reasons", d.Reasons).
		WithDetail("credit_limit", d.CreditLimit.String()).
		WithDetail("credit_balance", d.CreditBalance.String()).
		WithDetail("requested_amount", d.RequestedAmount.String()).
		WithDetail("overdue_invoice_ids", d.OverdueInvoices)
}

// Guard evaluates credit commitments. It never modifies the customer.
type Guard struct{}

// NewGuard creates a credit guard
func NewGuard() *Guard {
	return &Guard{}
}

// CanCommit decides a commitment of amount for customer. Callers that are not
// relying on credit (allowDeferredPayment false) are always allowed, as are
// customers that are not credit customers. Both the limit and the overdue
// checks run so a denial lists every reason.
func (g *Guard) CanCommit(customer *partner.Customer, amount decimal.Decimal, allowDeferredPayment bool,
	invoices []Receivable, at time.Time) Decision {
	if customer == nil || !customer.IsCredit() || !allowDeferredPayment {
		return Decision{Allowed: true, RequestedAmount: amount}
	}

	d := Decision{
		CustomerID:      customer.ID,
		CreditLimit:     customer.CreditLimit,
		CreditBalance:   customer.CreditBalance,
		RequestedAmount: amount,
	}
	if customer.CreditBalance.Add(amount).GreaterThan(customer.CreditLimit) {
		d.Reasons = append(d.Reasons, ReasonLimitExceeded)
	}
	for _, inv := range invoices {
		if inv.IsOverdueAt(at) && inv.OutstandingBalance().IsPositive() {
			d.OverdueInvoices = append(d.OverdueInvoices, inv.GetID())
		}
	}
	if len(d.OverdueInvoices) > 0 {
		d.Reasons = append(d.Reasons, ReasonOverdueInvoice)
	}
	d.Allowed = len(d.Reasons) == 0
	return d
}
