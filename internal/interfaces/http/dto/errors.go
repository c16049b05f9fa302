package dto

import (
	"net/http"

	"github.com/printshop/backend/internal/domain/shared"
)

// Transport error codes, for failures that never reach a service
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "INVALID_JSON"
	// ErrCodeInvalidID is used when a path id is not a positive integer
	ErrCodeInvalidID = "INVALID_ID"
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller's role lacks permission
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeRouteNotFound is used for unknown routes
	ErrCodeRouteNotFound = "ROUTE_NOT_FOUND"
)

// KindHTTPStatus maps domain error kinds to HTTP status codes
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:                    http.StatusBadRequest,
	shared.KindNotFound:                      http.StatusNotFound,
	shared.KindConcurrencyConflict:           http.StatusConflict,
	shared.KindInvalidTransition:             http.StatusUnprocessableEntity,
	shared.KindCreditDenied:                  http.StatusUnprocessableEntity,
	shared.KindInsufficientApprovalAuthority: http.StatusUnprocessableEntity,
	// A missing or ambiguous pricing rule is a data problem the caller can act on.
	shared.KindConfiguration: http.StatusUnprocessableEntity,
}

// ErrorCodeHTTPStatus maps transport error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeInvalidID:     http.StatusBadRequest,
	ErrCodeUnauthorized:  http.StatusUnauthorized,
	ErrCodeForbidden:     http.StatusForbidden,
	ErrCodeRouteNotFound: http.StatusNotFound,
}

// StatusForKind returns the HTTP status code for a domain error kind.
// Returns 500 Internal Server Error for unknown kinds.
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := KindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetHTTPStatus returns the HTTP status code for a transport error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromDomainError builds the error envelope for a domain error
func FromDomainError(err *shared.DomainError) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    err.ErrorCode(),
			Kind:    string(err.Kind),
			Message: err.Message,
			Details: err.Details,
		},
	}
}
