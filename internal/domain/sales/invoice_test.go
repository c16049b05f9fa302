package sales

import (
	"testing"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInvoice(t *testing.T, o *Order, overrides ...ItemOverride) *Invoice {
	t.Helper()
	inv, err := NewInvoiceFromOrder("INV-2026-0001", o, overrides, cashier, testNow)
	require.NoError(t, err)
	inv.ID = 500
	return inv
}

func assertInvoiceLedger(t *testing.T, inv *Invoice) {
	t.Helper()
	assert.True(t, inv.Figures.Consistent(inv.LineTotals()),
		"subtotal=%s total=%s paid=%s balance=%s", inv.Subtotal, inv.Total, inv.PaidAmount, inv.Balance)
}

func TestNewInvoiceFromOrder(t *testing.T) {
	t.Run("snapshots the order", func(t *testing.T) {
		o := submittedOrder(t, PaymentTermsCredit30)
		require.NoError(t, o.ApplyPayment(dec("50.00"), cashier, testNow))

		inv := createTestInvoice(t, o)
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		require.NotNil(t, inv.OrderID)
		assert.Equal(t, o.ID, *inv.OrderID)
		assert.Equal(t, o.CustomerID, inv.CustomerID)
		require.Len(t, inv.Lines, 2)
		assert.True(t, o.Total.Equal(inv.Total))
		assert.True(t, dec("50.00").Equal(inv.PaidAmount))
		assert.True(t, dec("125.50").Equal(inv.Balance))
		assertInvoiceLedger(t, inv)
	})

	t.Run("draft order is not invoiceable", func(t *testing.T) {
		o := createTestOrder(t, PaymentTermsImmediate)
		_, err := NewInvoiceFromOrder("INV-2026-0001", o, nil, cashier, testNow)
		requireCode(t, err, shared.ErrInvalidTransition, "ORDER_NOT_INVOICEABLE")
	})

	t.Run("overrides reprice a line", func(t *testing.T) {
		o := submittedOrder(t, PaymentTermsImmediate)
		inv := createTestInvoice(t, o, ItemOverride{OrderItemID: 1, UnitPrice: dec("0.70"), Reason: "reprint discount"})

		assert.True(t, dec("105.00").Equal(inv.Lines[0].LineTotal))
		assert.True(t, dec("155.00").Equal(inv.Subtotal))
		assert.True(t, dec("12.40").Equal(inv.Tax))
		assert.True(t, dec("167.40").Equal(inv.Total))
		require.Len(t, inv.ItemOverrides, 1)
		assertInvoiceLedger(t, inv)

		// the order itself keeps its price
		assert.True(t, dec("175.50").Equal(o.Total))
	})

	t.Run("override needs a reason", func(t *testing.T) {
		o := submittedOrder(t, PaymentTermsImmediate)
		_, err := NewInvoiceFromOrder("INV-2026-0001", o, []ItemOverride{{OrderItemID: 1, UnitPrice: dec("0.70")}}, cashier, testNow)
		requireCode(t, err, shared.ErrValidation, "OVERRIDE_REASON_REQUIRED")
	})

	t.Run("override of unknown item", func(t *testing.T) {
		o := submittedOrder(t, PaymentTermsImmediate)
		_, err := NewInvoiceFromOrder("INV-2026-0001", o, []ItemOverride{{OrderItemID: 77, UnitPrice: dec("1"), Reason: "x"}}, cashier, testNow)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestInvoice_OverrideItem(t *testing.T) {
	o := submittedOrder(t, PaymentTermsImmediate)
	inv := createTestInvoice(t, o)

	require.NoError(t, inv.OverrideItem(ItemOverride{OrderItemID: 2, UnitPrice: dec("20.00"), Reason: "damaged corner"}, testNow))
	require.NoError(t, inv.OverrideItem(ItemOverride{OrderItemID: 2, UnitPrice: dec("22.50"), Reason: "agreed price"}, testNow))
	require.Len(t, inv.ItemOverrides, 1)
	assert.Equal(t, "agreed price", inv.ItemOverrides[0].Reason)
	assert.True(t, dec("157.50").Equal(inv.Subtotal))
	assertInvoiceLedger(t, inv)

	require.NoError(t, inv.Issue(0, testNow))
	err := inv.OverrideItem(ItemOverride{OrderItemID: 2, UnitPrice: dec("1"), Reason: "late"}, testNow)
	requireCode(t, err, shared.ErrInvalidTransition, "INVOICE_NOT_EDITABLE")
}

func TestInvoice_Issue(t *testing.T) {
	tests := []struct {
		name   string
		paid   string
		status InvoiceStatus
	}{
		{"unpaid", "0", InvoiceStatusIssued},
		{"partly paid", "75.50", InvoiceStatusPartial},
		{"settled", "175.50", InvoiceStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := submittedOrder(t, PaymentTermsCredit30)
			if !dec(tt.paid).IsZero() {
				require.NoError(t, o.ApplyPayment(dec(tt.paid), cashier, testNow))
			}
			inv := createTestInvoice(t, o)

			require.NoError(t, inv.Issue(30, testNow))
			assert.Equal(t, tt.status, inv.Status)
			require.NotNil(t, inv.IssueDate)
			require.NotNil(t, inv.DueDate)
			assert.Equal(t, testNow.AddDate(0, 0, 30), *inv.DueDate)
			assertInvoiceLedger(t, inv)
		})
	}

	t.Run("issue twice", func(t *testing.T) {
		inv := createTestInvoice(t, submittedOrder(t, PaymentTermsImmediate))
		require.NoError(t, inv.Issue(0, testNow))
		assert.ErrorIs(t, inv.Issue(0, testNow), shared.ErrInvalidTransition)
	})
}

func TestInvoice_ApplyPayment(t *testing.T) {
	t.Run("draft takes no payments", func(t *testing.T) {
		inv := createTestInvoice(t, submittedOrder(t, PaymentTermsImmediate))
		err := inv.ApplyPayment(dec("10"), testNow)
		requireCode(t, err, shared.ErrInvalidTransition, "INVOICE_NOT_PAYABLE")
	})

	t.Run("issued to partial to paid", func(t *testing.T) {
		inv := createTestInvoice(t, submittedOrder(t, PaymentTermsImmediate))
		require.NoError(t, inv.Issue(0, testNow))

		require.NoError(t, inv.ApplyPayment(dec("100.00"), testNow))
		assert.Equal(t, InvoiceStatusPartial, inv.Status)
		assert.True(t, dec("75.50").Equal(inv.OutstandingBalance()))
		assertInvoiceLedger(t, inv)

		require.NoError(t, inv.ApplyPayment(dec("75.50"), testNow))
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assertInvoiceLedger(t, inv)

		// a refund reopens it
		require.NoError(t, inv.ApplyPayment(dec("-25.50"), testNow))
		assert.Equal(t, InvoiceStatusPartial, inv.Status)
		assert.True(t, dec("25.50").Equal(inv.Balance))
		assertInvoiceLedger(t, inv)
	})

	t.Run("refund cannot exceed paid", func(t *testing.T) {
		inv := createTestInvoice(t, submittedOrder(t, PaymentTermsImmediate))
		require.NoError(t, inv.Issue(0, testNow))
		require.NoError(t, inv.ApplyPayment(dec("10.00"), testNow))
		err := inv.ApplyPayment(dec("-20.00"), testNow)
		requireCode(t, err, shared.ErrValidation, "REFUND_EXCEEDS_PAID")
	})
}

func TestInvoice_CarryPayment(t *testing.T) {
	t.Run("draft accumulates without changing status", func(t *testing.T) {
		inv := createTestInvoice(t, submittedOrder(t, PaymentTermsImmediate))
		require.NoError(t, inv.CarryPayment(dec("175.50"), testNow))
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assert.True(t, inv.IsSettled())
		assertInvoiceLedger(t, inv)

		require.NoError(t, inv.Issue(0, testNow))
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
	})

	t.Run("issued invoice advances", func(t *testing.T) {
		inv := createTestInvoice(t, submittedOrder(t, PaymentTermsImmediate))
		require.NoError(t, inv.Issue(0, testNow))
		require.NoError(t, inv.CarryPayment(dec("5.00"), testNow))
		assert.Equal(t, InvoiceStatusPartial, inv.Status)
	})
}

func TestInvoice_Overdue(t *testing.T) {
	o := submittedOrder(t, PaymentTermsCredit30)
	inv := createTestInvoice(t, o)
	require.NoError(t, inv.Issue(30, testNow))

	dueDay := testNow.AddDate(0, 0, 30)
	assert.False(t, inv.IsOverdueAt(dueDay), "due date itself is not overdue")
	assert.False(t, inv.MarkOverdue(dueDay))

	later := dueDay.AddDate(0, 0, 1)
	assert.True(t, inv.IsOverdueAt(later))
	assert.True(t, inv.MarkOverdue(later))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.False(t, inv.MarkOverdue(later), "already overdue")

	require.NoError(t, inv.ApplyPayment(dec("50.00"), later))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.True(t, inv.IsOverdueAt(later))

	require.NoError(t, inv.ApplyPayment(inv.Balance, later))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.False(t, inv.IsOverdueAt(later))
}

func TestInvoice_Dispute(t *testing.T) {
	inv := createTestInvoice(t, submittedOrder(t, PaymentTermsImmediate))
	require.NoError(t, inv.Issue(0, testNow))

	requireCode(t, inv.Dispute("", testNow), shared.ErrValidation, "DISPUTE_REASON_REQUIRED")
	require.NoError(t, inv.Dispute("wrong size printed", testNow))
	assert.Equal(t, InvoiceStatusDisputed, inv.Status)
	assert.Equal(t, "wrong size printed", inv.DisputeReason)

	assert.ErrorIs(t, inv.Dispute("again", testNow), shared.ErrInvalidTransition)
	assert.ErrorIs(t, inv.ApplyPayment(dec("1"), testNow), shared.ErrInvalidTransition)
}

func TestInvoiceLines_Scan(t *testing.T) {
	var lines InvoiceLines
	require.NoError(t, lines.Scan([]byte(`[{"order_item_id":3,"description":"cards","quantity":150,"unit_price":"0.75","line_total":"112.5"}]`)))
	require.Len(t, lines, 1)
	assert.Equal(t, uint64(3), *lines[0].OrderItemID)
	assert.True(t, dec("112.50").Equal(lines[0].LineTotal))

	assert.Error(t, lines.Scan(42))
}
