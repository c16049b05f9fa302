package handler_test

import (
	"net/http"
	"testing"

	appapproval "github.com/printshop/backend/internal/application/approval"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalHandler_CreditOverride(t *testing.T) {
	f := newFixture(t)
	customer := f.s.SeedCreditCustomer(t, "Studio Nord", "100", 30)

	order := f.createOrder(t, sales.PaymentTermsCredit30, &customer.ID, testutil.Line(f.flyer.ID, 4))
	f.moveOrder(t, order.ID, sales.OrderStatusPendingPayment)

	w := f.api.AsClerk(t, http.MethodPost, url("/orders/%d/status", order.ID),
		appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusPaid})
	assertError(t, w, http.StatusUnprocessableEntity, string(shared.KindCreditDenied))

	w = f.api.AsClerk(t, http.MethodPost, url("/approvals"), appapproval.RequestApprovalRequest{
		Type:    approval.TypeCreditOverride,
		OrderID: &order.ID,
		Amount:  testutil.DecPtr("110"),
		Reason:  "long-standing client, cheque in the post",
	})
	testutil.RequireStatus(t, w, http.StatusCreated)
	request := testutil.DecodeData[appsales.ApprovalResponse](t, w)
	assert.Equal(t, approval.StatusPending, request.Status)
	assert.Equal(t, shared.UserID(testutil.ClerkID), request.RequestedBy)

	approve := appapproval.ResolveApprovalRequest{Decision: approval.DecisionApprove, Notes: "fine"}

	t.Run("clerk role cannot resolve", func(t *testing.T) {
		w := f.api.AsClerk(t, http.MethodPost, url("/approvals/%d/resolve", request.ID), approve)
		assertError(t, w, http.StatusUnprocessableEntity, string(shared.KindInsufficientApprovalAuthority))
	})

	t.Run("requester cannot resolve their own request", func(t *testing.T) {
		token := f.api.Token(t, testutil.ClerkID, "manager")
		w := f.api.Do(t, http.MethodPost, url("/approvals/%d/resolve", request.ID), approve, token)
		assertError(t, w, http.StatusUnprocessableEntity, string(shared.KindInsufficientApprovalAuthority))
		assert.Equal(t, "SELF_APPROVAL", testutil.DecodeError(t, w).Code)
	})

	w = f.api.AsManager(t, http.MethodPost, url("/approvals/%d/resolve", request.ID), approve)
	testutil.RequireStatus(t, w, http.StatusOK)
	resolved := testutil.DecodeData[appsales.ApprovalResponse](t, w)
	assert.Equal(t, approval.StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ApprovedBy)
	assert.Equal(t, shared.UserID(testutil.ManagerID), *resolved.ApprovedBy)

	w = f.api.AsManager(t, http.MethodPost, url("/approvals/%d/resolve", request.ID), approve)
	assertError(t, w, http.StatusUnprocessableEntity, string(shared.KindInvalidTransition))

	order = f.moveOrder(t, order.ID, sales.OrderStatusPaid)
	require.NotNil(t, order.ApprovedBy)
	assert.Equal(t, shared.UserID(testutil.ManagerID), *order.ApprovedBy)

	w = f.api.AsClerk(t, http.MethodGet, url("/approvals/%d", request.ID), nil)
	testutil.RequireStatus(t, w, http.StatusOK)
	assert.NotNil(t, testutil.DecodeData[appsales.ApprovalResponse](t, w).ConsumedAt)
}

func TestApprovalHandler_Errors(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, sales.PaymentTermsImmediate, nil, testutil.Line(f.flyer.ID, 1))

	tests := []struct {
		name string
		body any
	}{
		{"missing type", map[string]string{"reason": "x"}},
		{"missing reason", appapproval.RequestApprovalRequest{Type: approval.TypeCancelOverride}},
		{"discount without figures", appapproval.RequestApprovalRequest{
			Type: approval.TypeDiscount, OrderID: &order.ID, Reason: "x",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.api.AsClerk(t, http.MethodPost, url("/approvals"), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	t.Run("bad decision", func(t *testing.T) {
		w := f.api.AsManager(t, http.MethodPost, url("/approvals/%d/resolve", 1), map[string]string{"decision": "maybe"})
		assertError(t, w, http.StatusBadRequest, string(shared.KindValidation))
	})

	t.Run("unknown request", func(t *testing.T) {
		w := f.api.AsManager(t, http.MethodGet, url("/approvals/%d", 31337), nil)
		assertError(t, w, http.StatusNotFound, string(shared.KindNotFound))
	})
}
