package dto

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details. Kind is the domain error kind and Code
// the specific reason within it.
type ErrorInfo struct {
	Code      string         `json:"code"`
	Kind      string         `json:"kind,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// WithRequestID stamps the request id on an error response
func (r Response) WithRequestID(requestID string) Response {
	if r.Error != nil {
		info := *r.Error
		info.RequestID = requestID
		r.Error = &info
	}
	return r
}
