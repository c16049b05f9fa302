package sales

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/printshop/backend/internal/application/pricing"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/credit"
	"github.com/printshop/backend/internal/domain/ledger"
	"github.com/printshop/backend/internal/domain/numbering"
	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Policy holds the configured sales rules
type Policy struct {
	// TaxRate is applied to every new order and quotation, e.g. 0.08
	TaxRate decimal.Decimal
	// CounterDiscountLimitPercent is the largest discount, as a percent of the
	// subtotal, staff may give without an approved discount request.
	CounterDiscountLimitPercent decimal.Decimal
}

// OrderService handles the order lifecycle
type OrderService struct {
	runner   *transaction.Runner
	pricer   *pricing.Service
	guard    *credit.Guard
	policy   Policy
	validate *validator.Validate
}

// NewOrderService creates a new OrderService
func NewOrderService(runner *transaction.Runner, pricer *pricing.Service, guard *credit.Guard, policy Policy) *OrderService {
	return &OrderService{
		runner:   runner,
		pricer:   pricer,
		guard:    guard,
		policy:   policy,
		validate: shared.NewValidator(),
	}
}

func orderKey(id uint64) string {
	return shared.AggregateLockKey(sales.AggregateTypeOrder, id)
}

// CreateOrder creates a DRAFT order, pricing every requested line
func (s *OrderService) CreateOrder(ctx context.Context, actor shared.UserID, req CreateOrderRequest) (*OrderResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_ORDER_REQUEST", err)
	}
	terms := req.PaymentTerms
	if terms == "" {
		terms = sales.PaymentTermsImmediate
	}

	var resp *OrderResponse
	err := s.runner.Run(ctx, "OrderService.CreateOrder", nil, func(ctx context.Context, w *transaction.Work) error {
		customer, err := pricing.LoadCustomer(ctx, w.Repos, req.CustomerID)
		if err != nil {
			return err
		}
		number, err := numbering.Issue(ctx, w.Repos.Sequences(), numbering.KindOrder, w.Now)
		if err != nil {
			return err
		}
		order, err := sales.NewOrder(number, req.CustomerID, req.OrderType, terms, s.policy.TaxRate, actor, req.Notes, w.Now)
		if err != nil {
			return err
		}
		for _, line := range req.Items {
			product, res, err := s.pricer.PriceLine(ctx, w.Repos, customer, line, w.Now)
			if err != nil {
				return err
			}
			if _, err := order.AddItem(sales.NewItemDetails(product, line.Quantity, line.Dimensions, line.Description, res), w.Now); err != nil {
				return err
			}
		}
		if err := w.Repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		w.Raise(sales.NewOrderCreatedEvent(order))
		w.Collect(order)
		resp = ToOrderResponse(order, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.Logger().Info("order created",
		zap.Uint64("order_id", resp.ID),
		zap.String("order_number", resp.OrderNumber),
		zap.Uint64("actor", uint64(actor)),
	)
	return resp, nil
}

// GetOrder returns an order with its status history
func (s *OrderService) GetOrder(ctx context.Context, orderID uint64) (*OrderResponse, error) {
	var resp *OrderResponse
	err := s.runner.Run(ctx, "OrderService.GetOrder", nil, func(ctx context.Context, w *transaction.Work) error {
		order, err := w.Repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		history, err := w.Repos.Orders().FindHistory(ctx, orderID)
		if err != nil {
			return err
		}
		resp = ToOrderResponse(order, history)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// AddItem prices a line and appends it to an editable order
func (s *OrderService) AddItem(ctx context.Context, orderID uint64, line pricing.LineInput) (*OrderResponse, error) {
	return s.mutate(ctx, "OrderService.AddItem", orderID, func(ctx context.Context, w *transaction.Work, order *sales.Order) error {
		if err := order.EnsureEditable(); err != nil {
			return err
		}
		details, err := s.priceForOrder(ctx, w, order, line)
		if err != nil {
			return err
		}
		_, err = order.AddItem(details, w.Now)
		return err
	})
}

// UpdateItem re-prices an existing line with new content
func (s *OrderService) UpdateItem(ctx context.Context, orderID, itemID uint64, line pricing.LineInput) (*OrderResponse, error) {
	return s.mutate(ctx, "OrderService.UpdateItem", orderID, func(ctx context.Context, w *transaction.Work, order *sales.Order) error {
		if err := order.EnsureEditable(); err != nil {
			return err
		}
		if _, err := order.FindItem(itemID); err != nil {
			return err
		}
		details, err := s.priceForOrder(ctx, w, order, line)
		if err != nil {
			return err
		}
		return order.UpdateItem(itemID, details, w.Now)
	})
}

// RemoveItem drops a line from an editable order
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uint64) (*OrderResponse, error) {
	return s.mutate(ctx, "OrderService.RemoveItem", orderID, func(ctx context.Context, w *transaction.Work, order *sales.Order) error {
		return order.RemoveItem(itemID, w.Now)
	})
}

func (s *OrderService) priceForOrder(ctx context.Context, w *transaction.Work, order *sales.Order, line pricing.LineInput) (sales.ItemDetails, error) {
	customer, err := pricing.LoadCustomer(ctx, w.Repos, order.CustomerID)
	if err != nil {
		return sales.ItemDetails{}, err
	}
	product, res, err := s.pricer.PriceLine(ctx, w.Repos, customer, line, w.Now)
	if err != nil {
		return sales.ItemDetails{}, err
	}
	return sales.NewItemDetails(product, line.Quantity, line.Dimensions, line.Description, res), nil
}

// ApplyDiscount discounts an editable order. A discount above the counter limit
// needs an approved, unused discount request for this order covering it; when
// there is none a pending request is created and returned instead.
func (s *OrderService) ApplyDiscount(ctx context.Context, orderID uint64, actor shared.UserID, req ApplyDiscountRequest) (*DiscountResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_DISCOUNT_REQUEST", err)
	}
	discount, err := discountFrom(req)
	if err != nil {
		return nil, err
	}

	resp := &DiscountResponse{}
	err = s.runner.Run(ctx, "OrderService.ApplyDiscount", []string{orderKey(orderID)}, func(ctx context.Context, w *transaction.Work) error {
		order, err := w.Repos.Orders().FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.EnsureEditable(); err != nil {
			return err
		}
		amount, err := discount.AmountOf(order.Subtotal)
		if err != nil {
			return err
		}

		var approver *shared.UserID

		limit := s.policy.counterLimit(order.Subtotal)
		if amount.GreaterThan(limit) {
			granted, err := s.findDiscountApproval(ctx, w, order.ID, amount, discount.Percent)
			if err != nil {
				return err
			}
			if granted == nil {
				pending, err := s.requestDiscountApproval(ctx, w, order, actor, amount, discount)
				if err != nil {
					return err
				}
				resp.ApprovalRequired = true
				resp.Approval = ToApprovalResponse(pending)
				return nil
			}
			if err := granted.Consume(w.Now); err != nil {
				return err
			}
			if err := w.Repos.Approvals().Save(ctx, granted); err != nil {
				return err
			}
			approver = granted.ApprovedBy
		}

		if err := order.ApplyDiscount(discount, w.Now); err != nil {
			return err
		}
		if approver != nil {
			order.ApprovedBy = approver
		}
		if err := w.Repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		w.Collect(order)
		resp.Order = ToOrderResponse(order, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func discountFrom(req ApplyDiscountRequest) (ledger.Discount, error) {
	switch {
	case req.Amount != nil && req.Percent != nil:
		return ledger.Discount{}, shared.NewValidationError("DISCOUNT_AMBIGUOUS", "Give either a discount amount or a percent, not both")
	case req.Percent != nil:
		return ledger.PercentDiscount(*req.Percent, req.Reason), nil
	case req.Amount != nil:
		return ledger.FlatDiscount(*req.Amount, req.Reason), nil
	}
	return ledger.Discount{}, shared.NewValidationError("DISCOUNT_REQUIRED", "A discount amount or percent is required")
}

// counterLimit is the largest discount staff may give on subtotal unaided.
func (p Policy) counterLimit(subtotal decimal.Decimal) decimal.Decimal {
	return shared.RoundMoney(subtotal.Mul(p.CounterDiscountLimitPercent).Div(hundred))
}

func (s *OrderService) findDiscountApproval(ctx context.Context, w *transaction.Work, orderID uint64,
	amount decimal.Decimal, percent *decimal.Decimal) (*approval.Request, error) {
	usable, err := w.Repos.Approvals().FindUsable(ctx, approval.TypeDiscount, orderID)
	if err != nil {
		return nil, err
	}
	for i := range usable {
		if usable[i].Covers(amount, percent) {
			return &usable[i], nil
		}
	}
	return nil, nil
}

// requestDiscountApproval files a pending discount request, or returns the one
// already waiting for the same discount on this order.
func (s *OrderService) requestDiscountApproval(ctx context.Context, w *transaction.Work, order *sales.Order,
	actor shared.UserID, amount decimal.Decimal, discount ledger.Discount) (*approval.Request, error) {
	pending, err := w.Repos.Approvals().FindPending(ctx, approval.TypeDiscount, order.ID)
	if err != nil {
		return nil, err
	}
	for i := range pending {
		if pending[i].Asks(amount, discount.Percent) {
			return &pending[i], nil
		}
	}

	data := approval.RequestData{Amount: shared.DecimalPtr(amount), Reason: discount.Reason}
	if discount.Percent != nil {
		data.Percent = shared.DecimalPtr(*discount.Percent)
	}
	orderID := order.ID
	req, err := approval.NewRequest(approval.TypeDiscount, &orderID, order.CustomerID, actor, data)
	if err != nil {
		return nil, err
	}
	req.CreatedAt = w.Now
	req.UpdatedAt = w.Now
	if err := w.Repos.Approvals().Save(ctx, req); err != nil {
		return nil, err
	}
	s.runner.Logger().Info("discount above counter limit, approval requested",
		zap.Uint64("order_id", order.ID),
		zap.Uint64("approval_request_id", req.ID),
		zap.String("amount", amount.String()),
	)
	return req, nil
}

// UpdateOrderStatus moves an order to the requested status, running the checks
// and side effects that belong to that edge.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint64, actor shared.UserID, req UpdateOrderStatusRequest) (*OrderResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_STATUS_REQUEST", err)
	}
	if !req.Status.IsValid() {
		return nil, shared.NewValidationError("INVALID_ORDER_STATUS", fmt.Sprintf("unknown order status %q", req.Status))
	}

	return s.mutate(ctx, "OrderService.UpdateOrderStatus", orderID, func(ctx context.Context, w *transaction.Work, order *sales.Order) error {
		switch req.Status {
		case sales.OrderStatusPendingPayment:
			return order.Submit(actor, req.Notes, w.Now)
		case sales.OrderStatusPaid:
			return s.markPaid(ctx, w, order, actor, req.Notes)
		case sales.OrderStatusInProduction:
			return s.startProduction(ctx, w, order, actor, req.Notes)
		case sales.OrderStatusReady:
			return s.markReady(ctx, w, order, actor, req.Notes)
		case sales.OrderStatusReleased:
			return s.release(ctx, w, order, actor, req.Notes)
		case sales.OrderStatusCompleted:
			return order.Complete(actor, req.Notes, w.Now)
		case sales.OrderStatusCancelled:
			reason := req.Reason
			if strings.TrimSpace(reason) == "" {
				reason = req.Notes
			}
			return s.cancel(ctx, w, order, actor, reason)
		}
		return order.CheckTransition(req.Status)
	})
}

// markPaid releases an order for production. A settled order moves on its
// own; an unsettled one needs credit terms and the guard's consent or a usable
// credit override.
func (s *OrderService) markPaid(ctx context.Context, w *transaction.Work, order *sales.Order, actor shared.UserID, notes string) error {
	if err := order.CheckTransition(sales.OrderStatusPaid); err != nil {
		return err
	}
	if order.IsSettled() || !order.PaymentTerms.IsDeferred() {
		return order.MarkPaid(actor, false, notes, w.Now)
	}

	var (
		customer *partner.Customer
		open     []sales.Invoice
		err      error
	)
	if order.CustomerID != nil {
		// Credit decisions for one customer run one at a time
		if customer, err = w.Repos.Customers().FindForUpdate(ctx, *order.CustomerID); err != nil {
			return err
		}
		if open, err = w.Repos.Invoices().FindOpenByCustomer(ctx, customer.ID); err != nil {
			return err
		}
	}
	receivables := make([]credit.Receivable, len(open))
	for i := range open {
		receivables[i] = &open[i]
	}

	decision := s.guard.CanCommit(customer, order.Balance, true, receivables, w.Now)
	if decision.Allowed {
		return order.MarkPaid(actor, true, notes, w.Now)
	}

	override, err := s.findCreditOverride(ctx, w, order)
	if err != nil {
		return err
	}
	if override == nil {
		s.runner.Logger().Warn("credit denied",
			zap.Uint64("order_id", order.ID),
			zap.Strings("reasons", decision.Reasons),
		)
		return decision.Err()
	}
	if err := override.Consume(w.Now); err != nil {
		return err
	}
	if err := w.Repos.Approvals().Save(ctx, override); err != nil {
		return err
	}
	if err := order.MarkPaid(actor, true, joinNotes(notes, fmt.Sprintf("credit override #%d", override.ID)), w.Now); err != nil {
		return err
	}
	order.ApprovedBy = override.ApprovedBy
	return nil
}

// findCreditOverride prefers an override for the order over a customer-wide one.
func (s *OrderService) findCreditOverride(ctx context.Context, w *transaction.Work, order *sales.Order) (*approval.Request, error) {
	usable, err := w.Repos.Approvals().FindUsable(ctx, approval.TypeCreditOverride, order.ID)
	if err != nil {
		return nil, err
	}
	if len(usable) == 0 && order.CustomerID != nil {
		usable, err = w.Repos.Approvals().FindUsableForCustomer(ctx, approval.TypeCreditOverride, *order.CustomerID)
		if err != nil {
			return nil, err
		}
	}
	if len(usable) == 0 {
		return nil, nil
	}
	return &usable[0], nil
}

// startProduction spawns one PENDING job per production line
func (s *OrderService) startProduction(ctx context.Context, w *transaction.Work, order *sales.Order, actor shared.UserID, notes string) error {
	if err := order.StartProduction(actor, notes, w.Now); err != nil {
		return err
	}
	existing, err := w.Repos.Jobs().FindByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	spawned := make(map[uint64]bool, len(existing))
	for _, job := range existing {
		spawned[job.OrderItemID] = true
	}

	for _, item := range order.ProductionItems() {
		if spawned[item.ID] {
			continue
		}
		number, err := numbering.Issue(ctx, w.Repos.Sequences(), numbering.KindJob, w.Now)
		if err != nil {
			return err
		}
		job, err := production.NewServiceJob(number, order.ID, item.ID, production.PriorityNormal, nil, item.Description, actor, w.Now)
		if err != nil {
			return err
		}
		if err := w.Repos.Jobs().Save(ctx, job); err != nil {
			return err
		}
		w.Collect(job)
	}
	return nil
}

func (s *OrderService) markReady(ctx context.Context, w *transaction.Work, order *sales.Order, actor shared.UserID, notes string) error {
	jobs, err := w.Repos.Jobs().FindByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	return order.MarkReady(actor, countOutstanding(jobs), notes, w.Now)
}

// release hands the order over and stamps delivery on its completed jobs
func (s *OrderService) release(ctx context.Context, w *transaction.Work, order *sales.Order, actor shared.UserID, notes string) error {
	if err := order.Release(actor, notes, w.Now); err != nil {
		return err
	}
	jobs, err := w.Repos.Jobs().FindByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	for i := range jobs {
		job := &jobs[i]
		if job.Status != production.JobStatusCompleted || job.DeliveredAt != nil {
			continue
		}
		if err := job.MarkDelivered(w.Now); err != nil {
			return err
		}
		if err := w.Repos.Jobs().Save(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// cancel ends the order from any non-terminal status. PENDING jobs are
// cancelled with it and finished jobs are left alone. Started jobs are
// abandoned, which like refunding money paid in needs an approved cancel
// override; one override covers both.
func (s *OrderService) cancel(ctx context.Context, w *transaction.Work, order *sales.Order, actor shared.UserID, reason string) error {
	if err := order.CheckTransition(sales.OrderStatusCancelled); err != nil {
		return err
	}
	jobs, err := w.Repos.Jobs().FindByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	var pending, started []*production.ServiceJob
	for i := range jobs {
		switch {
		case jobs[i].Status == production.JobStatusPending:
			pending = append(pending, &jobs[i])
		case jobs[i].IsStarted():
			started = append(started, &jobs[i])
		}
	}

	var override *approval.Request
	if order.PaidAmount.IsPositive() || len(started) > 0 {
		usable, err := w.Repos.Approvals().FindUsable(ctx, approval.TypeCancelOverride, order.ID)
		if err != nil {
			return err
		}
		if len(usable) > 0 {
			override = &usable[0]
		}
	}
	if len(started) > 0 && override == nil {
		ids := make([]uint64, len(started))
		for i, job := range started {
			ids[i] = job.ID
		}
		return shared.NewDomainError(shared.KindInsufficientApprovalAuthority, "CANCEL_REQUIRES_APPROVAL",
			fmt.Sprintf("order %s has %d job(s) in production; cancellation needs an approved cancel_override",
				order.OrderNumber, len(started))).
			WithDetail("order_id", order.ID).
			WithDetail("started_job_ids", ids)
	}
	if err := order.Cancel(actor, reason, override != nil, w.Now); err != nil {
		return err
	}
	if override != nil {
		if err := override.Consume(w.Now); err != nil {
			return err
		}
		if err := w.Repos.Approvals().Save(ctx, override); err != nil {
			return err
		}
	}

	jobReason := "order cancelled: " + order.CancelReason
	for _, job := range pending {
		if err := job.Cancel(actor, jobReason, w.Now); err != nil {
			return err
		}
	}
	for _, job := range started {
		if err := job.Abandon(actor, jobReason, w.Now); err != nil {
			return err
		}
	}
	for _, job := range slices.Concat(pending, started) {
		if err := w.Repos.Jobs().Save(ctx, job); err != nil {
			return err
		}
		w.Collect(job)
	}
	return nil
}

// mutate loads the order under its lock, applies fn and saves it.
func (s *OrderService) mutate(ctx context.Context, op string, orderID uint64,
	fn func(ctx context.Context, w *transaction.Work, order *sales.Order) error) (*OrderResponse, error) {
	var resp *OrderResponse
	err := s.runner.Run(ctx, op, []string{orderKey(orderID)}, func(ctx context.Context, w *transaction.Work) error {
		order, err := w.Repos.Orders().FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(ctx, w, order); err != nil {
			return err
		}
		if err := w.Repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		w.Collect(order)
		resp = ToOrderResponse(order, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func countOutstanding(jobs []production.ServiceJob) int {
	n := 0
	for i := range jobs {
		if jobs[i].IsOutstanding() {
			n++
		}
	}
	return n
}

func joinNotes(notes, extra string) string {
	if strings.TrimSpace(notes) == "" {
		return extra
	}
	return notes + "; " + extra
}
