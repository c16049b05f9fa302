// Package approval lets staff ask for and managers grant one-off exceptions:
// oversized discounts, credit overrides and cancellations of paid orders.
package approval

import (
	"context"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestApprovalRequest represents a request for an exception
type RequestApprovalRequest struct {
	Type       approval.RequestType `json:"type" validate:"required"`
	OrderID    *uint64              `json:"order_id"`
	CustomerID *uint64              `json:"customer_id"`
	Amount     *decimal.Decimal     `json:"amount"`
	Percent    *decimal.Decimal     `json:"percent"`
	Reason     string               `json:"reason" validate:"required,max=500"`
}

// ResolveApprovalRequest represents an approver's decision
type ResolveApprovalRequest struct {
	Decision approval.Decision `json:"decision" validate:"required,oneof=approve reject"`
	Notes    string            `json:"notes" validate:"max=2000"`
}

// Service handles approval requests
type Service struct {
	runner        *transaction.Runner
	approverRoles []string
	validate      *validator.Validate
}

// NewService creates a new approval Service. Only users holding one of
// approverRoles may resolve requests.
func NewService(runner *transaction.Runner, approverRoles []string) *Service {
	roles := make([]string, 0, len(approverRoles))
	for _, r := range approverRoles {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			roles = append(roles, r)
		}
	}
	return &Service{
		runner:        runner,
		approverRoles: roles,
		validate:      shared.NewValidator(),
	}
}

func requestKey(id uint64) string {
	return shared.AggregateLockKey(approval.AggregateType, id)
}

// CanApprove reports whether role carries approval authority
func (s *Service) CanApprove(role string) bool {
	return slices.Contains(s.approverRoles, strings.ToLower(strings.TrimSpace(role)))
}

// RequestApproval files a pending request. A request for an order inherits the
// order's customer.
func (s *Service) RequestApproval(ctx context.Context, actor shared.UserID, req RequestApprovalRequest) (*appsales.ApprovalResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_APPROVAL_REQUEST", err)
	}
	var resp *appsales.ApprovalResponse
	err := s.runner.Run(ctx, "ApprovalService.RequestApproval", nil, func(ctx context.Context, w *transaction.Work) error {
		customerID := req.CustomerID
		if req.OrderID != nil {
			order, err := w.Repos.Orders().FindByID(ctx, *req.OrderID)
			if err != nil {
				return err
			}
			if customerID == nil {
				customerID = order.CustomerID
			}
		}
		if customerID != nil {
			if _, err := w.Repos.Customers().FindByID(ctx, *customerID); err != nil {
				return err
			}
		}

		data := approval.RequestData{Amount: req.Amount, Percent: req.Percent, Reason: req.Reason}
		r, err := approval.NewRequest(req.Type, req.OrderID, customerID, actor, data)
		if err != nil {
			return err
		}
		r.CreatedAt = w.Now
		r.UpdatedAt = w.Now
		if err := w.Repos.Approvals().Save(ctx, r); err != nil {
			return err
		}
		resp = appsales.ToApprovalResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ResolveApproval approves or rejects a pending request
func (s *Service) ResolveApproval(ctx context.Context, id uint64, approver shared.UserID, role string, req ResolveApprovalRequest) (*appsales.ApprovalResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.ValidationErrorFrom("INVALID_RESOLVE_REQUEST", err)
	}
	if !s.CanApprove(role) {
		return nil, shared.NewDomainError(shared.KindInsufficientApprovalAuthority, "INSUFFICIENT_APPROVAL_AUTHORITY",
			"Only managers may resolve approval requests").
			WithDetail("approval_request_id", id).
			WithDetail("role", role)
	}

	var resp *appsales.ApprovalResponse
	err := s.runner.Run(ctx, "ApprovalService.ResolveApproval", []string{requestKey(id)}, func(ctx context.Context, w *transaction.Work) error {
		r, err := w.Repos.Approvals().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Resolve(req.Decision, approver, req.Notes, w.Now); err != nil {
			return err
		}
		if err := w.Repos.Approvals().Save(ctx, r); err != nil {
			return err
		}
		w.Collect(r)
		resp = appsales.ToApprovalResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.Logger().Info("approval resolved",
		zap.Uint64("approval_request_id", id),
		zap.String("status", string(resp.Status)),
		zap.Uint64("approver", uint64(approver)),
	)
	return resp, nil
}

// GetApproval returns an approval request by ID
func (s *Service) GetApproval(ctx context.Context, id uint64) (*appsales.ApprovalResponse, error) {
	var resp *appsales.ApprovalResponse
	err := s.runner.Run(ctx, "ApprovalService.GetApproval", nil, func(ctx context.Context, w *transaction.Work) error {
		r, err := w.Repos.Approvals().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = appsales.ToApprovalResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
