package credit

import (
	"errors"
	"testing"
	"time"

	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInvoice struct {
	id      uint64
	balance decimal.Decimal
	overdue bool
}

func (s stubInvoice) GetID() uint64                       { return s.id }
func (s stubInvoice) OutstandingBalance() decimal.Decimal { return s.balance }
func (s stubInvoice) IsOverdueAt(time.Time) bool          { return s.overdue }

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func creditCustomer(t *testing.T, limit, balance int64) *partner.Customer {
	t.Helper()
	c, err := partner.NewCreditCustomer("Acme", decimal.NewFromInt(limit), 30)
	require.NoError(t, err)
	c.ID = 9
	c.CreditBalance = decimal.NewFromInt(balance)
	return c
}

func TestGuard_CanCommit(t *testing.T) {
	guard := NewGuard()

	t.Run("limit exceeded is denied", func(t *testing.T) {
		customer := creditCustomer(t, 1000, 800)
		d := guard.CanCommit(customer, decimal.NewFromInt(300), true, nil, now)

		assert.False(t, d.Allowed)
		assert.Equal(t, []string{ReasonLimitExceeded}, d.Reasons)

		err := d.Err()
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrCreditDenied))
		de, _ := shared.AsDomainError(err)
		assert.Equal(t, "1000", de.Details["credit_limit"])
		assert.Equal(t, "800", de.Details["credit_balance"])
		assert.Equal(t, "300", de.Details["requested_amount"])
	})

	t.Run("overdue invoice denies regardless of headroom", func(t *testing.T) {
		customer := creditCustomer(t, 1000, 800)
		invoices := []Receivable{stubInvoice{id: 4, balance: decimal.NewFromInt(50), overdue: true}}
		d := guard.CanCommit(customer, decimal.NewFromInt(150), true, invoices, now)

		assert.False(t, d.Allowed)
		assert.Equal(t, []string{ReasonOverdueInvoice}, d.Reasons)
		assert.Equal(t, []uint64{4}, d.OverdueInvoices)
	})

	t.Run("both reasons are reported", func(t *testing.T) {
		customer := creditCustomer(t, 1000, 800)
		invoices := []Receivable{stubInvoice{id: 4, balance: decimal.NewFromInt(50), overdue: true}}
		d := guard.CanCommit(customer, decimal.NewFromInt(300), true, invoices, now)

		assert.Equal(t, []string{ReasonLimitExceeded, ReasonOverdueInvoice}, d.Reasons)
	})

	t.Run("exactly at the limit is allowed", func(t *testing.T) {
		customer := creditCustomer(t, 1000, 800)
		d := guard.CanCommit(customer, decimal.NewFromInt(200), true, nil, now)
		assert.True(t, d.Allowed)
		assert.NoError(t, d.Err())
	})

	t.Run("settled overdue invoice does not block", func(t *testing.T) {
		customer := creditCustomer(t, 1000, 0)
		invoices := []Receivable{
			stubInvoice{id: 1, balance: decimal.Zero, overdue: true},
			stubInvoice{id: 2, balance: decimal.NewFromInt(10), overdue: false},
		}
		d := guard.CanCommit(customer, decimal.NewFromInt(100), true, invoices, now)
		assert.True(t, d.Allowed)
	})

	t.Run("not relying on credit is always allowed", func(t *testing.T) {
		customer := creditCustomer(t, 1000, 1500)
		invoices := []Receivable{stubInvoice{id: 4, balance: decimal.NewFromInt(50), overdue: true}}
		d := guard.CanCommit(customer, decimal.NewFromInt(300), false, invoices, now)
		assert.True(t, d.Allowed)
	})

	t.Run("non-credit customers are always allowed", func(t *testing.T) {
		customer, err := partner.NewCustomer("Regular", partner.CustomerTypeRegular)
		require.NoError(t, err)
		d := guard.CanCommit(customer, decimal.NewFromInt(1_000_000), true, nil, now)
		assert.True(t, d.Allowed)

		d = guard.CanCommit(nil, decimal.NewFromInt(10), true, nil, now)
		assert.True(t, d.Allowed)
	})

	t.Run("guard never mutates the customer", func(t *testing.T) {
		customer := creditCustomer(t, 1000, 800)
		guard.CanCommit(customer, decimal.NewFromInt(100), true, nil, now)
		assert.True(t, customer.CreditBalance.Equal(decimal.NewFromInt(800)))
	})
}
