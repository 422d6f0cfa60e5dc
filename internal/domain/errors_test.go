package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRequestFailedError(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")
	err := &RequestFailedError{Err: inner}

	if err.Error() != "request failed: dial tcp: connection refused" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("Expected errors.Is to find the wrapped transport error")
	}

	var reqErr *RequestFailedError
	if !errors.As(error(err), &reqErr) {
		t.Error("Expected errors.As to match RequestFailedError")
	}
}

func TestInvalidResponseError(t *testing.T) {
	err := &InvalidResponseError{Detail: "Ollama response missing 'response' field"}

	if err.Error() != "invalid response: Ollama response missing 'response' field" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}

	var respErr *InvalidResponseError
	if !errors.As(error(err), &respErr) {
		t.Error("Expected errors.As to match InvalidResponseError")
	}
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Invalid input",
			code:      ErrInvalidInput,
			message:   "Request body is not valid JSON",
			details:   "unexpected end of JSON input",
			requestID: "req-123",
		},
		{
			name:      "Store unavailable",
			code:      ErrNotConfigured,
			message:   "History store is not configured",
			details:   "",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expected := tt.code + ": " + tt.message
			if err.Error() != expected {
				t.Errorf("Expected error string %s, got %s", expected, err.Error())
			}
		})
	}
}
