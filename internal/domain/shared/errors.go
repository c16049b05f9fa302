package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError. Callers branch on the kind, not on the message.
type ErrorKind string

const (
	KindConfiguration                 ErrorKind = "CONFIGURATION_ERROR"
	KindValidation                    ErrorKind = "VALIDATION_ERROR"
	KindInvalidTransition             ErrorKind = "INVALID_TRANSITION"
	KindCreditDenied                  ErrorKind = "CREDIT_DENIED"
	KindInsufficientApprovalAuthority ErrorKind = "INSUFFICIENT_APPROVAL_AUTHORITY"
	KindConcurrencyConflict           ErrorKind = "CONCURRENCY_CONFLICT"
	KindNotFound                      ErrorKind = "NOT_FOUND"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError of the same kind. A target that carries a code
// only matches errors with that code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return true
}

// ErrorCode returns the specific code, falling back to the kind.
func (e *DomainError) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

// WithDetail returns a copy of the error with key set in its details.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR with the given code.
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewConfigurationError creates a CONFIGURATION_ERROR with the given code.
func NewConfigurationError(code, message string) *DomainError {
	return NewDomainError(KindConfiguration, code, message)
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity string, id uint64) *DomainError {
	return NewDomainError(KindNotFound, "", fmt.Sprintf("%s %d not found", entity, id)).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewInvalidTransitionError reports a state machine edge that is not allowed.
func NewInvalidTransitionError(entity string, id uint64, from, to string) *DomainError {
	return NewDomainError(KindInvalidTransition, "",
		fmt.Sprintf("cannot transition %s %d from %s to %s", entity, id, from, to)).
		WithDetail("entity", entity).
		WithDetail("id", id).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewConcurrencyConflictError reports a stale write or lock contention on an aggregate.
func NewConcurrencyConflictError(entity string, id uint64) *DomainError {
	return NewDomainError(KindConcurrencyConflict, "",
		fmt.Sprintf("%s %d was modified by another process", entity, id)).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// Sentinels for errors.Is checks, one per kind.
var (
	ErrNotFound                      = NewDomainError(KindNotFound, "", "resource not found")
	ErrValidation                    = NewDomainError(KindValidation, "", "invalid input")
	ErrConfiguration                 = NewDomainError(KindConfiguration, "", "configuration error")
	ErrInvalidTransition             = NewDomainError(KindInvalidTransition, "", "transition not allowed")
	ErrCreditDenied                  = NewDomainError(KindCreditDenied, "", "credit denied")
	ErrInsufficientApprovalAuthority = NewDomainError(KindInsufficientApprovalAuthority, "", "approval required")
	ErrConcurrencyConflict           = NewDomainError(KindConcurrencyConflict, "", "resource was modified by another process")
)

// AsDomainError unwraps err into a DomainError if it is one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsRetryable reports whether the operation that produced err may be retried as-is.
// Only concurrency conflicts qualify; everything else needs changed input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
