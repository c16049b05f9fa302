package approval

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateType is the aggregate name used in events and lock keys.
const AggregateType = "ApprovalRequest"

// RequestType is the action an approval authorises
type RequestType string

const (
	TypeDiscount       RequestType = "discount"
	TypeCreditOverride RequestType = "credit_override"
	TypeCancelOverride RequestType = "cancel_override"
)

// IsValid checks if the request type is valid
func (t RequestType) IsValid() bool {
	switch t {
	case TypeDiscount, TypeCreditOverride, TypeCancelOverride:
		return true
	}
	return false
}

// Status of an approval request
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Decision is what an approver chooses
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// RequestData holds the parameters of the action that was refused.
type RequestData struct {
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Percent *decimal.Decimal `json:"percent,omitempty"`
	Reason  string           `json:"reason"`
}

// Value implements driver.Valuer for the JSONB column
func (d RequestData) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the JSONB column
func (d *RequestData) Scan(value interface{}) error {
	if value == nil {
		*d = RequestData{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan RequestData: unsupported type")
	}
	if len(bytes) == 0 {
		*d = RequestData{}
		return nil
	}
	return json.Unmarshal(bytes, d)
}

// Request is a pending or resolved exception. It never changes the order or
// customer it refers to; an approved request lets the original action be
// retried once.
type Request struct {
	shared.BaseAggregateRoot
	Type          RequestType    `gorm:"type:varchar(30);not null;index"`
	Status        Status         `gorm:"type:varchar(20);not null;index"`
	OrderID       *uint64        `gorm:"index"`
	CustomerID    *uint64        `gorm:"index"`
	RequestedBy   shared.UserID  `gorm:"not null"`
	ApprovedBy    *shared.UserID `gorm:"column:approved_by"`
	ApprovedAt    *time.Time
	RequestData   RequestData `gorm:"type:jsonb;not null"`
	ApproverNotes string      `gorm:"type:text"`
	ConsumedAt    *time.Time
}

// TableName returns the table name for GORM
func (Request) TableName() string {
	return "approval_requests"
}

// NewRequest creates a pending request
func NewRequest(requestType RequestType, orderID, customerID *uint64, requestedBy shared.UserID, data RequestData) (*Request, error) {
	if !requestType.IsValid() {
		return nil, shared.NewValidationError("INVALID_APPROVAL_TYPE", fmt.Sprintf("unknown approval type %q", requestType))
	}
	if requestedBy == 0 {
		return nil, shared.NewValidationError("REQUESTER_REQUIRED", "An approval request needs a requester")
	}
	if strings.TrimSpace(data.Reason) == "" {
		return nil, shared.NewValidationError("APPROVAL_REASON_REQUIRED", "An approval request needs a reason")
	}
	switch requestType {
	case TypeDiscount, TypeCancelOverride:
		if orderID == nil {
			return nil, shared.NewValidationError("ORDER_REQUIRED", fmt.Sprintf("%s approval must reference an order", requestType))
		}
	case TypeCreditOverride:
		if orderID == nil && customerID == nil {
			return nil, shared.NewValidationError("SUBJECT_REQUIRED", "credit_override approval must reference an order or a customer")
		}
	}
	if requestType == TypeDiscount && data.Amount == nil && data.Percent == nil {
		return nil, shared.NewValidationError("DISCOUNT_REQUIRED", "discount approval must carry an amount or a percent")
	}
	data.Reason = strings.TrimSpace(data.Reason)

	return &Request{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              requestType,
		Status:            StatusPending,
		OrderID:           orderID,
		CustomerID:        customerID,
		RequestedBy:       requestedBy,
		RequestData:       data,
	}, nil
}

// IsPending reports whether the request awaits a decision
func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// Resolve applies an approver's decision. Resolved requests are terminal and a
// requester cannot approve their own request.
func (r *Request) Resolve(decision Decision, approver shared.UserID, notes string, now time.Time) error {
	var target Status
	switch decision {
	case DecisionApprove:
		target = StatusApproved
	case DecisionReject:
		target = StatusRejected
	default:
		return shared.NewValidationError("INVALID_DECISION", "Decision must be approve or reject")
	}
	if !r.IsPending() {
		return shared.NewInvalidTransitionError(AggregateType, r.ID, string(r.Status), string(target))
	}
	if approver == 0 {
		return shared.NewValidationError("APPROVER_REQUIRED", "An approver is required")
	}
	if approver == r.RequestedBy {
		return shared.NewDomainError(shared.KindInsufficientApprovalAuthority, "SELF_APPROVAL",
			"A request cannot be resolved by its requester").
			WithDetail("approval_request_id", r.ID)
	}

	r.Status = target
	r.ApprovedBy = &approver
	r.ApprovedAt = &now
	r.ApproverNotes = strings.TrimSpace(notes)
	r.Touch(now)
	r.AddDomainEvent(NewResolvedEvent(r))
	return nil
}

// Approve resolves the request as approved
func (r *Request) Approve(approver shared.UserID, notes string, now time.Time) error {
	return r.Resolve(DecisionApprove, approver, notes, now)
}

// Reject resolves the request as rejected
func (r *Request) Reject(approver shared.UserID, notes string, now time.Time) error {
	return r.Resolve(DecisionReject, approver, notes, now)
}

// IsUsable reports whether the request is approved and not yet consumed.
func (r *Request) IsUsable() bool {
	return r.Status == StatusApproved && r.ConsumedAt == nil
}

// Covers reports whether a usable discount approval authorises a discount of
// amount (resolved against the subtotal) or percent.
func (r *Request) Covers(amount decimal.Decimal, percent *decimal.Decimal) bool {
	if !r.IsUsable() {
		return false
	}
	if percent != nil {
		return r.RequestData.Percent != nil && !percent.GreaterThan(*r.RequestData.Percent)
	}
	return r.RequestData.Amount != nil && !amount.GreaterThan(*r.RequestData.Amount)
}

// Asks reports whether a pending discount request is for exactly this
// discount, given as amount or percent.
func (r *Request) Asks(amount decimal.Decimal, percent *decimal.Decimal) bool {
	if !r.IsPending() {
		return false
	}
	if percent != nil {
		return r.RequestData.Percent != nil && percent.Equal(*r.RequestData.Percent)
	}
	return r.RequestData.Percent == nil && r.RequestData.Amount != nil && amount.Equal(*r.RequestData.Amount)
}

// Consume marks the approval as used. Each approval authorises exactly one action.
func (r *Request) Consume(now time.Time) error {
	if !r.IsUsable() {
		return shared.NewDomainError(shared.KindInsufficientApprovalAuthority, "APPROVAL_NOT_USABLE",
			"Approval is not approved or has already been used").
			WithDetail("approval_request_id", r.ID).
			WithDetail("status", string(r.Status))
	}
	r.ConsumedAt = &now
	r.Touch(now)
	return nil
}

// Repository defines the interface for approval request persistence
type Repository interface {
	FindByID(ctx context.Context, id uint64) (*Request, error)

	// FindUsable returns approved, unconsumed requests of a type for an order, oldest first.
	FindUsable(ctx context.Context, requestType RequestType, orderID uint64) ([]Request, error)

	// FindUsableForCustomer is FindUsable for customer-level credit overrides.
	FindUsableForCustomer(ctx context.Context, requestType RequestType, customerID uint64) ([]Request, error)

	// FindPending returns requests of a type for an order still awaiting a decision, oldest first.
	FindPending(ctx context.Context, requestType RequestType, orderID uint64) ([]Request, error)

	Save(ctx context.Context, request *Request) error
}
