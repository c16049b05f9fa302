package handler

import "github.com/printshop/backend/internal/interfaces/http/dto"

// APIResponse is dto.Response with a typed data field. It only appears in the
// swag annotations so generated docs show each endpoint's payload.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// CountData reports how many records a bulk operation such as the overdue
// sweep touched.
type CountData struct {
	Count int `json:"count"`
}
