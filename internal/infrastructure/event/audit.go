package event

import (
	"context"

	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured "audit" log line per domain event,
// on a logger named audit so it can be routed separately.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an audit handler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes implements shared.EventHandler; the audit log sees everything
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle implements shared.EventHandler
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.Uint64("aggregate_id", event.AggregateID()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *sales.OrderCreatedEvent:
		fields = append(fields,
			zap.String("order_number", e.OrderNumber),
			zap.String("order_type", string(e.OrderType)),
			zap.String("total", e.Total.StringFixed(2)),
			zap.Int("item_count", e.ItemCount),
			zap.Uint64("actor", uint64(e.CreatedBy)),
		)
		if e.QuotationID != nil {
			fields = append(fields, zap.Uint64("quotation_id", *e.QuotationID))
		}
	case *sales.OrderStatusChangedEvent:
		fields = append(fields,
			zap.String("order_number", e.OrderNumber),
			zap.String("from", string(e.FromStatus)),
			zap.String("to", string(e.ToStatus)),
			zap.String("action", e.Action),
			zap.String("balance", e.Balance.StringFixed(2)),
			zap.Uint64("actor", uint64(e.ChangedBy)),
		)
	case *sales.PaymentRecordedEvent:
		fields = append(fields,
			zap.String("payment_number", e.PaymentNumber),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("method", string(e.Method)),
			zap.Uint64("actor", uint64(e.ReceivedBy)),
		)
		if e.OrderID != nil {
			fields = append(fields, zap.Uint64("order_id", *e.OrderID))
		}
		if e.InvoiceID != nil {
			fields = append(fields, zap.Uint64("invoice_id", *e.InvoiceID))
		}
	case *production.StatusChangedEvent:
		fields = append(fields,
			zap.String("job_number", e.JobNumber),
			zap.Uint64("order_id", e.OrderID),
			zap.String("from", string(e.FromStatus)),
			zap.String("to", string(e.ToStatus)),
			zap.Int("rework_count", e.ReworkCount),
			zap.Uint64("actor", uint64(e.ChangedBy)),
		)
	case *approval.ResolvedEvent:
		fields = append(fields,
			zap.String("request_type", string(e.RequestType)),
			zap.String("status", string(e.Status)),
			zap.Uint64("actor", uint64(e.ApprovedBy)),
		)
		if e.OrderID != nil {
			fields = append(fields, zap.Uint64("order_id", *e.OrderID))
		}
	}

	h.logger.Info("audit", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
