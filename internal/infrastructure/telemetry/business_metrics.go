package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BusinessMetrics counts print shop activity: orders, payments, production
// transitions and approvals. Money is reported in the shop currency's major unit.
type BusinessMetrics struct {
	ordersCreated     *Counter
	orderValue        *FloatCounter
	orderTransitions  *Counter
	payments          *Counter
	paymentAmount     *FloatCounter
	jobTransitions    *Counter
	approvalsResolved *Counter
	invoicesOverdue   *Counter
}

// NewBusinessMetrics registers the business instruments on meter.
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	bm := &BusinessMetrics{}
	var err error

	if bm.ordersCreated, err = NewCounter(meter,
		"printshop_orders_created_total", "Orders created", "{orders}"); err != nil {
		return nil, err
	}
	if bm.orderValue, err = NewFloatCounter(meter,
		"printshop_order_value_total", "Sum of order totals at creation", "{currency}"); err != nil {
		return nil, err
	}
	if bm.orderTransitions, err = NewCounter(meter,
		"printshop_order_transitions_total", "Order status transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if bm.payments, err = NewCounter(meter,
		"printshop_payments_total", "Payments recorded", "{payments}"); err != nil {
		return nil, err
	}
	if bm.paymentAmount, err = NewFloatCounter(meter,
		"printshop_payment_amount_total", "Sum of recorded payments", "{currency}"); err != nil {
		return nil, err
	}
	if bm.jobTransitions, err = NewCounter(meter,
		"printshop_service_job_transitions_total", "Service job status transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if bm.approvalsResolved, err = NewCounter(meter,
		"printshop_approvals_resolved_total", "Approval requests approved or rejected", "{requests}"); err != nil {
		return nil, err
	}
	if bm.invoicesOverdue, err = NewCounter(meter,
		"printshop_invoices_overdue_total", "Invoices flagged overdue by the sweep", "{invoices}"); err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordOrderCreated counts a new order and adds its total.
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, orderType string, total decimal.Decimal) {
	attr := AttrOrderType.String(orderType)
	bm.ordersCreated.Inc(ctx, attr)
	bm.orderValue.Add(ctx, total.InexactFloat64(), attr)
}

// RecordOrderTransition counts one order status change.
func (bm *BusinessMetrics) RecordOrderTransition(ctx context.Context, from, to string) {
	bm.orderTransitions.Inc(ctx, AttrFromStatus.String(from), AttrToStatus.String(to))
}

// RecordPayment counts a payment and adds its amount.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, method string, amount decimal.Decimal) {
	attr := AttrPaymentMethod.String(method)
	bm.payments.Inc(ctx, attr)
	bm.paymentAmount.Add(ctx, amount.InexactFloat64(), attr)
}

// RecordJobTransition counts one service job status change.
func (bm *BusinessMetrics) RecordJobTransition(ctx context.Context, from, to string) {
	bm.jobTransitions.Inc(ctx, AttrFromStatus.String(from), AttrToStatus.String(to))
}

// RecordApprovalResolved counts an approval decision.
func (bm *BusinessMetrics) RecordApprovalResolved(ctx context.Context, requestType, outcome string) {
	bm.approvalsResolved.Inc(ctx, AttrRequestType.String(requestType), AttrOutcome.String(outcome))
}

// RecordInvoicesOverdue adds the number of invoices a sweep flagged.
func (bm *BusinessMetrics) RecordInvoicesOverdue(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	bm.invoicesOverdue.Add(ctx, int64(n))
}
