package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by storage layers when a record does not exist.
var ErrNotFound = errors.New("not found")

// RequestFailedError indicates the generation backend could not be reached:
// connection failure, timeout, context cancellation, or a non-2xx status.
type RequestFailedError struct {
	Err error
}

// Error implements the error interface.
func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

// InvalidResponseError indicates the backend answered 2xx but the body did
// not carry the expected generated-text field.
type InvalidResponseError struct {
	Detail string
}

// Error implements the error interface.
func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response: %s", e.Detail)
}

// APIError is the standardized error body of the HTTP layer.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrRecordNotFound = "NOT_FOUND"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrExternalAPI    = "EXTERNAL_API_ERROR"
	ErrReasoning      = "REASONING_ERROR"
	ErrNotConfigured  = "NOT_CONFIGURED"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates an APIError stamped with the current time.
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
