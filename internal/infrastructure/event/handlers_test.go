package event

import (
	"context"
	"testing"

	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRecorder struct {
	calls []string
	total decimal.Decimal
}

func (r *fakeRecorder) RecordOrderCreated(_ context.Context, orderType string, total decimal.Decimal) {
	r.calls = append(r.calls, "order_created:"+orderType)
	r.total = r.total.Add(total)
}

func (r *fakeRecorder) RecordOrderTransition(_ context.Context, from, to string) {
	r.calls = append(r.calls, "order:"+from+">"+to)
}

func (r *fakeRecorder) RecordPayment(_ context.Context, method string, amount decimal.Decimal) {
	r.calls = append(r.calls, "payment:"+method)
	r.total = r.total.Add(amount)
}

func (r *fakeRecorder) RecordJobTransition(_ context.Context, from, to string) {
	r.calls = append(r.calls, "job:"+from+">"+to)
}

func (r *fakeRecorder) RecordApprovalResolved(_ context.Context, requestType, outcome string) {
	r.calls = append(r.calls, "approval:"+requestType+":"+outcome)
}

func sampleEvents() []shared.DomainEvent {
	orderID := uint64(10)
	return []shared.DomainEvent{
		&sales.OrderCreatedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeOrderCreated, sales.AggregateTypeOrder, orderID),
			OrderNumber:     "ORD-2026-000010",
			OrderType:       sales.OrderTypeCounter,
			Total:           decimal.RequireFromString("25.00"),
			ItemCount:       2,
			CreatedBy:       3,
		},
		&sales.OrderStatusChangedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeOrderStatusChanged, sales.AggregateTypeOrder, orderID),
			OrderNumber:     "ORD-2026-000010",
			FromStatus:      sales.OrderStatusPendingPayment,
			ToStatus:        sales.OrderStatusPaid,
			Action:          "payment",
			ChangedBy:       3,
		},
		&sales.PaymentRecordedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypePaymentRecorded, sales.AggregateTypePayment, 4),
			PaymentNumber:   "PAY-2026-000004",
			OrderID:         &orderID,
			Amount:          decimal.RequireFromString("25.00"),
			Method:          sales.PaymentMethodCash,
			ReceivedBy:      3,
		},
		&production.StatusChangedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(production.EventTypeStatusChanged, production.AggregateType, 7),
			JobNumber:       "JOB-2026-000007",
			OrderID:         orderID,
			FromStatus:      production.JobStatusPending,
			ToStatus:        production.JobStatusAccepted,
			ChangedBy:       5,
		},
		&approval.ResolvedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(approval.EventTypeResolved, approval.AggregateType, 2),
			RequestType:     approval.TypeDiscount,
			Status:          approval.StatusApproved,
			OrderID:         &orderID,
			ApprovedBy:      9,
		},
	}
}

func TestMetricsHandler_ThroughBus(t *testing.T) {
	rec := &fakeRecorder{}
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewMetricsHandler(rec))

	require.NoError(t, bus.Publish(context.Background(), sampleEvents()...))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("unrelated", 1)))

	assert.Equal(t, []string{
		"order_created:counter",
		"order:PENDING_PAYMENT>PAID",
		"payment:cash",
		"job:PENDING>ACCEPTED",
		"approval:discount:approved",
	}, rec.calls)
	assert.True(t, decimal.NewFromInt(50).Equal(rec.total))
}

func TestAuditLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	assert.Empty(t, h.EventTypes())

	for _, e := range sampleEvents() {
		require.NoError(t, h.Handle(context.Background(), e))
	}
	require.NoError(t, h.Handle(context.Background(), newTestEvent("custom.event", 99)))

	entries := logs.All()
	require.Len(t, entries, 6)
	for _, entry := range entries {
		assert.Equal(t, "audit", entry.Message)
		assert.Equal(t, "audit", entry.LoggerName)
	}

	created := entries[0].ContextMap()
	assert.Equal(t, "ORD-2026-000010", created["order_number"])
	assert.Equal(t, "counter", created["order_type"])
	assert.Equal(t, "25.00", created["total"])

	payment := entries[2].ContextMap()
	assert.Equal(t, uint64(10), payment["order_id"])
	assert.NotContains(t, payment, "invoice_id")

	job := entries[3].ContextMap()
	assert.Equal(t, "PENDING", job["from"])
	assert.Equal(t, "ACCEPTED", job["to"])

	custom := entries[5].ContextMap()
	assert.Equal(t, "custom.event", custom["event_type"])
	assert.Equal(t, uint64(99), custom["aggregate_id"])
}
