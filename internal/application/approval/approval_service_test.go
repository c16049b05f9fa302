package approval_test

import (
	"context"
	"testing"

	appapproval "github.com/printshop/backend/internal/application/approval"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/credit"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CanApprove(t *testing.T) {
	svc := appapproval.NewService(nil, []string{" Manager ", "admin", ""})

	tests := []struct {
		role string
		want bool
	}{
		{"manager", true},
		{"MANAGER", true},
		{"admin", true},
		{"clerk", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.CanApprove(tt.role))
		})
	}
}

func TestService_RequestApproval(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")
	customer := s.SeedCreditCustomer(t, "Bella Events", "500", 30)
	order := s.CreateOrder(t, &customer.ID, "credit_30", testutil.Line(flyer.ID, 1))

	t.Run("inherits the order's customer", func(t *testing.T) {
		resp, err := s.Approvals.RequestApproval(ctx, testutil.ClerkID, appapproval.RequestApprovalRequest{
			Type:    approval.TypeCancelOverride,
			OrderID: &order.ID,
			Reason:  "customer cancelled by phone",
		})
		require.NoError(t, err)
		assert.Equal(t, approval.StatusPending, resp.Status)
		require.NotNil(t, resp.CustomerID)
		assert.Equal(t, customer.ID, *resp.CustomerID)
		assert.Equal(t, shared.UserID(testutil.ClerkID), resp.RequestedBy)
		assert.Equal(t, "customer cancelled by phone", resp.RequestData.Reason)
	})

	tests := []struct {
		name string
		req  appapproval.RequestApprovalRequest
		code string
		kind shared.ErrorKind
	}{
		{
			name: "missing reason",
			req:  appapproval.RequestApprovalRequest{Type: approval.TypeCancelOverride, OrderID: &order.ID},
			code: "INVALID_APPROVAL_REQUEST",
			kind: shared.KindValidation,
		},
		{
			name: "unknown type",
			req:  appapproval.RequestApprovalRequest{Type: "bribe", OrderID: &order.ID, Reason: "please"},
			code: "INVALID_APPROVAL_TYPE",
			kind: shared.KindValidation,
		},
		{
			name: "discount without figures",
			req:  appapproval.RequestApprovalRequest{Type: approval.TypeDiscount, OrderID: &order.ID, Reason: "loyal"},
			code: "DISCOUNT_REQUIRED",
			kind: shared.KindValidation,
		},
		{
			name: "cancel override without order",
			req:  appapproval.RequestApprovalRequest{Type: approval.TypeCancelOverride, CustomerID: &customer.ID, Reason: "x"},
			code: "ORDER_REQUIRED",
			kind: shared.KindValidation,
		},
		{
			name: "credit override without subject",
			req:  appapproval.RequestApprovalRequest{Type: approval.TypeCreditOverride, Reason: "x"},
			code: "SUBJECT_REQUIRED",
			kind: shared.KindValidation,
		},
		{
			name: "unknown order",
			req:  appapproval.RequestApprovalRequest{Type: approval.TypeCancelOverride, OrderID: testutil.Ptr(uint64(4242)), Reason: "x"},
			kind: shared.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Approvals.RequestApproval(ctx, testutil.ClerkID, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, &shared.DomainError{Kind: tt.kind, Code: tt.code})
		})
	}
}

func TestService_ResolveApproval(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")
	order := s.CreateOrder(t, nil, "immediate", testutil.Line(flyer.ID, 1))

	file := func(t *testing.T) *appsales.ApprovalResponse {
		t.Helper()
		resp, err := s.Approvals.RequestApproval(ctx, testutil.ClerkID, appapproval.RequestApprovalRequest{
			Type:    approval.TypeCancelOverride,
			OrderID: &order.ID,
			Reason:  "duplicate order",
		})
		require.NoError(t, err)
		return resp
	}
	approve := appapproval.ResolveApprovalRequest{Decision: approval.DecisionApprove, Notes: " ok "}

	t.Run("approve", func(t *testing.T) {
		s.Events.Reset()
		pending := file(t)

		resolved, err := s.Approvals.ResolveApproval(ctx, pending.ID, testutil.ManagerID, "manager", approve)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusApproved, resolved.Status)
		require.NotNil(t, resolved.ApprovedBy)
		assert.Equal(t, shared.UserID(testutil.ManagerID), *resolved.ApprovedBy)
		require.NotNil(t, resolved.ApprovedAt)
		assert.True(t, testutil.DefaultNow.Equal(*resolved.ApprovedAt))
		assert.Equal(t, "ok", resolved.Notes)
		assert.Nil(t, resolved.ConsumedAt)
		assert.Equal(t, []string{approval.EventTypeResolved}, s.Events.Types())

		_, err = s.Approvals.ResolveApproval(ctx, pending.ID, testutil.ManagerID, "manager",
			appapproval.ResolveApprovalRequest{Decision: approval.DecisionReject})
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})

	t.Run("reject", func(t *testing.T) {
		pending := file(t)
		resolved, err := s.Approvals.ResolveApproval(ctx, pending.ID, testutil.ManagerID, "admin",
			appapproval.ResolveApprovalRequest{Decision: approval.DecisionReject, Notes: "no"})
		require.NoError(t, err)
		assert.Equal(t, approval.StatusRejected, resolved.Status)

		again, err := s.Approvals.GetApproval(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, approval.StatusRejected, again.Status)
	})

	t.Run("requires authority", func(t *testing.T) {
		pending := file(t)
		_, err := s.Approvals.ResolveApproval(ctx, pending.ID, testutil.ManagerID, "clerk", approve)
		assert.ErrorIs(t, err, &shared.DomainError{Kind: shared.KindInsufficientApprovalAuthority, Code: "INSUFFICIENT_APPROVAL_AUTHORITY"})
	})

	t.Run("requester cannot approve their own request", func(t *testing.T) {
		pending := file(t)
		_, err := s.Approvals.ResolveApproval(ctx, pending.ID, testutil.ClerkID, "manager", approve)
		assert.ErrorIs(t, err, &shared.DomainError{Code: "SELF_APPROVAL"})
	})

	t.Run("bad decision", func(t *testing.T) {
		pending := file(t)
		_, err := s.Approvals.ResolveApproval(ctx, pending.ID, testutil.ManagerID, "manager",
			appapproval.ResolveApprovalRequest{Decision: "maybe"})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := s.Approvals.ResolveApproval(ctx, 4242, testutil.ManagerID, "manager", approve)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestService_DiscountApproval(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")
	order := s.CreateOrder(t, nil, "immediate", testutil.Line(flyer.ID, 4))
	twenty := appsales.ApplyDiscountRequest{Percent: testutil.DecPtr("20"), Reason: "repeat customer"}

	parked, err := s.Orders.ApplyDiscount(ctx, order.ID, testutil.ClerkID, twenty)
	require.NoError(t, err)
	require.True(t, parked.ApprovalRequired)
	require.NotNil(t, parked.Approval)
	assert.Nil(t, parked.Order)
	assert.Equal(t, approval.TypeDiscount, parked.Approval.Type)
	require.NotNil(t, parked.Approval.RequestData.Amount)
	assert.True(t, testutil.Dec("20").Equal(*parked.Approval.RequestData.Amount))

	_, err = s.Approvals.ResolveApproval(ctx, parked.Approval.ID, testutil.ManagerID, "manager",
		appapproval.ResolveApprovalRequest{Decision: approval.DecisionApprove})
	require.NoError(t, err)

	applied, err := s.Orders.ApplyDiscount(ctx, order.ID, testutil.ClerkID, twenty)
	require.NoError(t, err)
	require.False(t, applied.ApprovalRequired)
	require.NotNil(t, applied.Order)
	assert.True(t, testutil.Dec("20").Equal(applied.Order.Discount), applied.Order.Discount.String())
	require.NotNil(t, applied.Order.ApprovedBy)
	assert.Equal(t, shared.UserID(testutil.ManagerID), *applied.Order.ApprovedBy)

	used, err := s.Approvals.GetApproval(ctx, parked.Approval.ID)
	require.NoError(t, err)
	assert.NotNil(t, used.ConsumedAt)

	again, err := s.Orders.ApplyDiscount(ctx, order.ID, testutil.ClerkID, twenty)
	require.NoError(t, err)
	assert.True(t, again.ApprovalRequired, "an approval authorises one discount")
	require.NotNil(t, again.Approval)
	assert.NotEqual(t, parked.Approval.ID, again.Approval.ID)

	t.Run("a retry reuses the pending request", func(t *testing.T) {
		retry, err := s.Orders.ApplyDiscount(ctx, order.ID, testutil.ClerkID, twenty)
		require.NoError(t, err)
		require.True(t, retry.ApprovalRequired)
		assert.Equal(t, again.Approval.ID, retry.Approval.ID)

		bigger, err := s.Orders.ApplyDiscount(ctx, order.ID, testutil.ClerkID,
			appsales.ApplyDiscountRequest{Percent: testutil.DecPtr("25"), Reason: "repeat customer"})
		require.NoError(t, err)
		require.True(t, bigger.ApprovalRequired)
		assert.NotEqual(t, again.Approval.ID, bigger.Approval.ID)
	})

	t.Run("within the counter limit needs nobody", func(t *testing.T) {
		small, err := s.Orders.ApplyDiscount(ctx, order.ID, testutil.ClerkID,
			appsales.ApplyDiscountRequest{Amount: testutil.DecPtr("10"), Reason: "scuffed box"})
		require.NoError(t, err)
		assert.False(t, small.ApprovalRequired)
		assert.True(t, testutil.Dec("10").Equal(small.Order.Discount))
	})
}

func TestService_CreditOverride(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")
	customer := s.SeedCreditCustomer(t, "Bella Events", "50", 30)

	order := s.CreateOrder(t, &customer.ID, "credit_30", testutil.Line(flyer.ID, 4))
	s.SubmitOrder(t, order.ID)

	paid := appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusPaid}
	_, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID, paid)
	assert.ErrorIs(t, err, &shared.DomainError{Kind: shared.KindCreditDenied, Code: credit.ReasonLimitExceeded})

	override := s.ApproveAs(t, appapproval.RequestApprovalRequest{
		Type:       approval.TypeCreditOverride,
		CustomerID: &customer.ID,
		Reason:     "event next week, paying on delivery",
	})

	released, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID, paid)
	require.NoError(t, err)
	assert.Equal(t, sales.OrderStatusPaid, released.Status)
	require.NotNil(t, released.ApprovedBy)
	assert.Equal(t, shared.UserID(testutil.ManagerID), *released.ApprovedBy)

	used, err := s.Approvals.GetApproval(ctx, override.ID)
	require.NoError(t, err)
	assert.NotNil(t, used.ConsumedAt)
}
