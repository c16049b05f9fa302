package sales_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appapproval "github.com/printshop/backend/internal/application/approval"
	apppricing "github.com/printshop/backend/internal/application/pricing"
	appproduction "github.com/printshop/backend/internal/application/production"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/credit"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_Events(t *testing.T) {
	s := testutil.NewStack(t)
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")

	order := s.CreateOrder(t, nil, "immediate", testutil.Line(flyer.ID, 2))
	s.SubmitOrder(t, order.ID)
	s.Pay(t, order.ID, "55")

	assert.Equal(t, []string{
		sales.EventTypeOrderCreated,
		sales.EventTypeOrderStatusChanged,
		sales.EventTypeOrderStatusChanged,
		sales.EventTypePaymentRecorded,
	}, s.Events.Types())

	t.Run("failed work publishes nothing", func(t *testing.T) {
		s.Events.Reset()
		_, err := s.Orders.UpdateOrderStatus(context.Background(), order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusInProduction})
		assert.ErrorIs(t, err, &shared.DomainError{Code: "NO_PRODUCTION_ITEMS"})
		assert.Empty(t, s.Events.Events())
	})

	t.Run("a failing bus does not fail the request", func(t *testing.T) {
		s.Events.SetError(assert.AnError)
		defer s.Events.Reset()
		ready, err := s.Orders.UpdateOrderStatus(context.Background(), order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusReady})
		require.NoError(t, err)
		assert.Equal(t, sales.OrderStatusReady, ready.Status)
	})
}

func TestOrderService_CreateOrder_RollsBack(t *testing.T) {
	s := testutil.NewStack(t)
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")

	_, err := s.Orders.CreateOrder(context.Background(), testutil.ClerkID, appsales.CreateOrderRequest{
		OrderType: sales.OrderTypeCounter,
		Items:     []apppricing.LineInput{testutil.Line(flyer.ID, 1), testutil.Line(9999, 1)},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var count int64
	require.NoError(t, s.DB.DB.Model(&sales.Order{}).Count(&count).Error)
	assert.Zero(t, count)

	order := s.CreateOrder(t, nil, "immediate", testutil.Line(flyer.ID, 1))
	assert.Equal(t, "ORD-2025-0001", order.OrderNumber)
}

func TestOrderService_CreditGuard(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")
	customer := s.SeedCreditCustomer(t, "Bella Events", "1000", 30)

	first := s.CreateOrder(t, &customer.ID, "credit_30", testutil.Line(flyer.ID, 4))
	s.SubmitOrder(t, first.ID)
	paid := s.MoveOrder(t, first.ID, "PAID")
	require.NotNil(t, paid.ApprovedBy)
	assert.Equal(t, shared.UserID(testutil.ClerkID), *paid.ApprovedBy)
	assert.True(t, paid.Balance.IsPositive())

	invoice, err := s.Invoices.CreateFromOrder(ctx, testutil.ClerkID, appsales.CreateInvoiceRequest{OrderID: first.ID})
	require.NoError(t, err)
	_, err = s.Invoices.Issue(ctx, invoice.ID)
	require.NoError(t, err)

	s.Clock.Advance(31 * 24 * time.Hour)
	n, err := s.Invoices.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second := s.CreateOrder(t, &customer.ID, "credit_30", testutil.Line(flyer.ID, 1))
	s.SubmitOrder(t, second.ID)

	_, err = s.Orders.UpdateOrderStatus(ctx, second.ID, testutil.ClerkID,
		appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusPaid})
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, shared.KindCreditDenied, de.Kind)
	assert.Equal(t, credit.ReasonOverdueInvoice, de.Code)
	assert.Equal(t, []uint64{invoice.ID}, de.Details["overdue_invoice_ids"])

	t.Run("immediate orders skip the guard", func(t *testing.T) {
		walkIn := s.CreateOrder(t, &customer.ID, "immediate", testutil.Line(flyer.ID, 1))
		s.SubmitOrder(t, walkIn.ID)
		_, err := s.Orders.UpdateOrderStatus(ctx, walkIn.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusPaid})
		assert.ErrorIs(t, err, &shared.DomainError{Code: "BALANCE_OUTSTANDING"})
	})
}

func TestOrderService_Cancel(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	cards := s.SeedFixedProduct(t, "BC-STD", catalog.ProductTypeService, "40.00")

	t.Run("pending jobs are cancelled with the order", func(t *testing.T) {
		order := s.CreateOrder(t, nil, "immediate", testutil.Line(cards.ID, 1))
		s.SubmitOrder(t, order.ID)
		s.Pay(t, order.ID, "44")
		s.MoveOrder(t, order.ID, "IN_PRODUCTION")

		_, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusCancelled, Reason: "customer changed mind"})
		assert.ErrorIs(t, err, &shared.DomainError{Code: "CANCEL_REQUIRES_APPROVAL"})

		s.ApproveAs(t, appapproval.RequestApprovalRequest{
			Type:    approval.TypeCancelOverride,
			OrderID: &order.ID,
			Reason:  "refund agreed",
		})
		cancelled, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusCancelled, Reason: "customer changed mind"})
		require.NoError(t, err)
		assert.Equal(t, sales.OrderStatusCancelled, cancelled.Status)
		assert.Equal(t, "customer changed mind", cancelled.CancelReason)

		jobs, err := s.Jobs.ListOrderJobs(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, production.JobStatusCancelled, jobs[0].Status)
	})

	t.Run("started work needs a cancel override and is abandoned with it", func(t *testing.T) {
		order := productionOrder(t, s, cards.ID)
		job := onlyJob(t, s, order.ID)
		moveJob(t, s, job.ID, production.JobStatusAccepted, production.JobStatusInProgress)

		_, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusCancelled, Reason: "too late"})
		assert.ErrorIs(t, err, &shared.DomainError{Code: "CANCEL_REQUIRES_APPROVAL"})
		again, err := s.Orders.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, sales.OrderStatusInProduction, again.Status)

		s.ApproveAs(t, appapproval.RequestApprovalRequest{Type: approval.TypeCancelOverride, OrderID: &order.ID, Reason: "refund"})
		cancelled, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusCancelled, Reason: "too late"})
		require.NoError(t, err)
		assert.Equal(t, sales.OrderStatusCancelled, cancelled.Status)
		assert.Equal(t, production.JobStatusCancelled, onlyJob(t, s, order.ID).Status)
	})

	t.Run("a rejected job leaves cancellation as the way out", func(t *testing.T) {
		order := productionOrder(t, s, cards.ID)
		job := onlyJob(t, s, order.ID)
		moveJob(t, s, job.ID, production.JobStatusAccepted, production.JobStatusInProgress,
			production.JobStatusQAReview, production.JobStatusRejected)

		_, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusReady})
		assert.ErrorIs(t, err, &shared.DomainError{Code: "JOBS_OUTSTANDING"})

		s.ApproveAs(t, appapproval.RequestApprovalRequest{Type: approval.TypeCancelOverride, OrderID: &order.ID, Reason: "misprint refund"})
		cancelled, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusCancelled, Reason: "misprint"})
		require.NoError(t, err)
		assert.Equal(t, sales.OrderStatusCancelled, cancelled.Status)
		assert.Equal(t, production.JobStatusRejected, onlyJob(t, s, order.ID).Status)
	})

	t.Run("a ready order with completed jobs can be cancelled", func(t *testing.T) {
		order := productionOrder(t, s, cards.ID)
		job := onlyJob(t, s, order.ID)
		moveJob(t, s, job.ID, production.JobStatusAccepted, production.JobStatusInProgress,
			production.JobStatusQAReview, production.JobStatusCompleted)
		ready, err := s.Orders.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		require.Equal(t, sales.OrderStatusReady, ready.Status)

		s.ApproveAs(t, appapproval.RequestApprovalRequest{Type: approval.TypeCancelOverride, OrderID: &order.ID, Reason: "never collected"})
		cancelled, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusCancelled, Reason: "never collected"})
		require.NoError(t, err)
		assert.Equal(t, sales.OrderStatusCancelled, cancelled.Status)
		assert.Equal(t, production.JobStatusCompleted, onlyJob(t, s, order.ID).Status)
	})

	t.Run("an unpaid order without started work needs no override", func(t *testing.T) {
		order := s.CreateOrder(t, nil, "immediate", testutil.Line(cards.ID, 1))
		s.SubmitOrder(t, order.ID)
		cancelled, err := s.Orders.UpdateOrderStatus(ctx, order.ID, testutil.ClerkID,
			appsales.UpdateOrderStatusRequest{Status: sales.OrderStatusCancelled, Reason: "walked out"})
		require.NoError(t, err)
		assert.Equal(t, sales.OrderStatusCancelled, cancelled.Status)
	})
}

// productionOrder creates a paid single-line order and starts its production.
func productionOrder(t *testing.T, s *testutil.Stack, productID uint64) *appsales.OrderResponse {
	t.Helper()
	order := s.CreateOrder(t, nil, "immediate", testutil.Line(productID, 1))
	s.SubmitOrder(t, order.ID)
	s.Pay(t, order.ID, "44")
	return s.MoveOrder(t, order.ID, "IN_PRODUCTION")
}

func onlyJob(t *testing.T, s *testutil.Stack, orderID uint64) appproduction.JobResponse {
	t.Helper()
	jobs, err := s.Jobs.ListOrderJobs(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	return jobs[0]
}

func moveJob(t *testing.T, s *testutil.Stack, jobID uint64, steps ...production.JobStatus) {
	t.Helper()
	for _, status := range steps {
		_, err := s.Jobs.UpdateServiceJobStatus(context.Background(), jobID, testutil.ClerkID,
			appproduction.UpdateJobStatusRequest{Status: status, Reason: "checked"})
		require.NoError(t, err, "job to %s", status)
	}
}

func TestPaymentService_ConcurrentPayments(t *testing.T) {
	s := testutil.NewStack(t)
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")
	order := s.CreateOrder(t, nil, "immediate", testutil.Line(flyer.ID, 2))
	s.SubmitOrder(t, order.ID)

	const payers = 5
	var wg sync.WaitGroup
	for i := 0; i < payers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Payments.RecordPayment(context.Background(), testutil.ClerkID, appsales.RecordPaymentRequest{
				OrderID: &order.ID,
				Amount:  testutil.Dec("11"),
				Method:  sales.PaymentMethodCash,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := s.Orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("55").Equal(final.PaidAmount), final.PaidAmount.String())
	assert.True(t, final.Balance.IsZero())
	assert.Equal(t, sales.OrderStatusPaid, final.Status)
	assert.Len(t, s.Events.OfType(sales.EventTypePaymentRecorded), payers)
}

func TestPaymentService_MixedTargets(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	flyer := s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00")
	customer := s.SeedCreditCustomer(t, "Bella Events", "1000", 30)

	order := s.CreateOrder(t, &customer.ID, "credit_30", testutil.Line(flyer.ID, 4))
	s.SubmitOrder(t, order.ID)
	s.MoveOrder(t, order.ID, "PAID")
	invoice, err := s.Invoices.CreateFromOrder(ctx, testutil.ClerkID, appsales.CreateInvoiceRequest{OrderID: order.ID})
	require.NoError(t, err)
	_, err = s.Invoices.Issue(ctx, invoice.ID)
	require.NoError(t, err)

	t.Run("the link is followed from either side", func(t *testing.T) {
		byOrder, err := s.Payments.RecordPayment(ctx, testutil.ClerkID, appsales.RecordPaymentRequest{
			OrderID: &order.ID, Amount: testutil.Dec("5"), Method: sales.PaymentMethodCash,
		})
		require.NoError(t, err)
		require.NotNil(t, byOrder.Invoice)
		assert.Equal(t, invoice.ID, byOrder.Invoice.ID)

		byInvoice, err := s.Payments.RecordPayment(ctx, testutil.ClerkID, appsales.RecordPaymentRequest{
			InvoiceID: &invoice.ID, Amount: testutil.Dec("5"), Method: sales.PaymentMethodCash,
		})
		require.NoError(t, err)
		require.NotNil(t, byInvoice.Order)
		assert.Equal(t, order.ID, byInvoice.Order.ID)
	})

	t.Run("concurrent payments on both sides", func(t *testing.T) {
		const payers = 6
		var wg sync.WaitGroup
		for i := 0; i < payers; i++ {
			req := appsales.RecordPaymentRequest{Amount: testutil.Dec("10"), Method: sales.PaymentMethodCash}
			if i%2 == 0 {
				req.OrderID = &order.ID
			} else {
				req.InvoiceID = &invoice.ID
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Payments.RecordPayment(ctx, testutil.ClerkID, req)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		finalOrder, err := s.Orders.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		finalInvoice, err := s.Invoices.GetInvoice(ctx, invoice.ID)
		require.NoError(t, err)
		assert.True(t, testutil.Dec("70").Equal(finalOrder.PaidAmount), finalOrder.PaidAmount.String())
		assert.True(t, testutil.Dec("70").Equal(finalInvoice.PaidAmount), finalInvoice.PaidAmount.String())
		assert.True(t, finalOrder.Balance.Equal(finalInvoice.Balance))
	})

	t.Run("mismatched targets are refused", func(t *testing.T) {
		other := s.CreateOrder(t, nil, "immediate", testutil.Line(flyer.ID, 1))
		_, err := s.Payments.RecordPayment(ctx, testutil.ClerkID, appsales.RecordPaymentRequest{
			OrderID: &other.ID, InvoiceID: &invoice.ID, Amount: testutil.Dec("1"), Method: sales.PaymentMethodCash,
		})
		assert.ErrorIs(t, err, &shared.DomainError{Code: "PAYMENT_TARGET_MISMATCH"})
	})
}
