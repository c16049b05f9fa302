package handler_test

import (
	"net/http"
	"testing"

	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentHandler_Record(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, sales.PaymentTermsImmediate, nil, testutil.Line(f.flyer.ID, 2))

	t.Run("draft orders take no money", func(t *testing.T) {
		w := f.api.AsClerk(t, http.MethodPost, url("/payments"), appsales.RecordPaymentRequest{
			OrderID: &order.ID,
			Amount:  testutil.Dec("10"),
			Method:  sales.PaymentMethodCash,
		})
		assertError(t, w, http.StatusUnprocessableEntity, string(shared.KindInvalidTransition))
		assert.Equal(t, "ORDER_NOT_PAYABLE", testutil.DecodeError(t, w).Code)
	})

	f.moveOrder(t, order.ID, sales.OrderStatusPendingPayment)

	first := f.pay(t, order.ID, "20")
	assert.Regexp(t, `^PAY-2025-\d{4}$`, first.PaymentNumber)
	assert.Equal(t, shared.UserID(testutil.ClerkID), first.ReceivedBy)
	require.NotNil(t, first.Order)
	assert.Equal(t, sales.OrderStatusPendingPayment, first.Order.Status)
	assertMoney(t, "35", first.Order.Balance)

	card := appsales.RecordPaymentRequest{
		OrderID:   &order.ID,
		Amount:    testutil.Dec("35"),
		Method:    sales.PaymentMethodCard,
		Reference: "CARD-7781",
	}
	w := f.api.AsClerk(t, http.MethodPost, url("/payments"), card)
	testutil.RequireStatus(t, w, http.StatusCreated)
	second := testutil.DecodeData[appsales.PaymentResponse](t, w)
	require.NotNil(t, second.Order)
	assert.Equal(t, sales.OrderStatusPaid, second.Order.Status)
	assertMoney(t, "0", second.Order.Balance)

	t.Run("reference is used once", func(t *testing.T) {
		w := f.api.AsClerk(t, http.MethodPost, url("/payments"), card)
		assertError(t, w, http.StatusBadRequest, string(shared.KindValidation))
		assert.Equal(t, "DUPLICATE_PAYMENT_REFERENCE", testutil.DecodeError(t, w).Code)
	})

	t.Run("refund", func(t *testing.T) {
		w := f.api.AsClerk(t, http.MethodPost, url("/payments"), appsales.RecordPaymentRequest{
			OrderID: &order.ID,
			Amount:  testutil.Dec("-5"),
			Method:  sales.PaymentMethodCash,
			Notes:   "short-cut edge",
		})
		testutil.RequireStatus(t, w, http.StatusCreated)
		refund := testutil.DecodeData[appsales.PaymentResponse](t, w)
		assertMoney(t, "-5", refund.Amount)
		assertMoney(t, "50", refund.Order.PaidAmount)
	})

	t.Run("refund beyond what was paid", func(t *testing.T) {
		w := f.api.AsClerk(t, http.MethodPost, url("/payments"), appsales.RecordPaymentRequest{
			OrderID: &order.ID,
			Amount:  testutil.Dec("-500"),
			Method:  sales.PaymentMethodCash,
			Notes:   "goodwill",
		})
		assertError(t, w, http.StatusBadRequest, string(shared.KindValidation))
		assert.Equal(t, "REFUND_EXCEEDS_PAID", testutil.DecodeError(t, w).Code)
	})

	t.Run("no target", func(t *testing.T) {
		w := f.api.AsClerk(t, http.MethodPost, url("/payments"), appsales.RecordPaymentRequest{
			Amount: testutil.Dec("5"),
			Method: sales.PaymentMethodCash,
		})
		assertError(t, w, http.StatusBadRequest, string(shared.KindValidation))
		assert.Equal(t, "PAYMENT_TARGET_REQUIRED", testutil.DecodeError(t, w).Code)
	})

	t.Run("missing method", func(t *testing.T) {
		w := f.api.AsClerk(t, http.MethodPost, url("/payments"), map[string]any{"order_id": order.ID, "amount": "5"})
		assertError(t, w, http.StatusBadRequest, string(shared.KindValidation))
	})
}
