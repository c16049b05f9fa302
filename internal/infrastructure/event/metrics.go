package event

import (
	"context"

	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BusinessRecorder receives business counters; telemetry.BusinessMetrics implements it.
type BusinessRecorder interface {
	RecordOrderCreated(ctx context.Context, orderType string, total decimal.Decimal)
	RecordOrderTransition(ctx context.Context, from, to string)
	RecordPayment(ctx context.Context, method string, amount decimal.Decimal)
	RecordJobTransition(ctx context.Context, from, to string)
	RecordApprovalResolved(ctx context.Context, requestType, outcome string)
}

// MetricsHandler turns committed domain events into business metrics
type MetricsHandler struct {
	recorder BusinessRecorder
}

// NewMetricsHandler creates a metrics handler
func NewMetricsHandler(recorder BusinessRecorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// EventTypes implements shared.EventHandler
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		sales.EventTypeOrderCreated,
		sales.EventTypeOrderStatusChanged,
		sales.EventTypePaymentRecorded,
		production.EventTypeStatusChanged,
		approval.EventTypeResolved,
	}
}

// Handle implements shared.EventHandler
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.OrderCreatedEvent:
		h.recorder.RecordOrderCreated(ctx, string(e.OrderType), e.Total)
	case *sales.OrderStatusChangedEvent:
		h.recorder.RecordOrderTransition(ctx, string(e.FromStatus), string(e.ToStatus))
	case *sales.PaymentRecordedEvent:
		h.recorder.RecordPayment(ctx, string(e.Method), e.Amount)
	case *production.StatusChangedEvent:
		h.recorder.RecordJobTransition(ctx, string(e.FromStatus), string(e.ToStatus))
	case *approval.ResolvedEvent:
		h.recorder.RecordApprovalResolved(ctx, string(e.RequestType), string(e.Status))
	}
	return nil
}

var _ shared.EventHandler = (*MetricsHandler)(nil)
