package llm

import (
	"fmt"
	"net/http"
)

// LLMError represents errors that can occur during LLM operations
type LLMError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("llm.%s: %s", e.Op, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrInvalidInput       = "InvalidInput"
	ErrTokenLimitExceeded = "TokenLimitExceeded"
	ErrModelNotAvailable  = "ModelNotAvailable"
	ErrRateLimitExceeded  = "RateLimitExceeded"
	ErrUnauthorized       = "Unauthorized"
	ErrContextCanceled    = "ContextCanceled"
	ErrAPIError           = "APIError"
	ErrInternal           = "Internal"
)

func NewLLMError(op, code, message string, err error) *LLMError {
	return &LLMError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrFromStatus maps an HTTP failure from an inference server to an error.
func ErrFromStatus(op string, status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusBadRequest:
		return NewLLMError(op, ErrInvalidInput, "invalid request", err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewLLMError(op, ErrUnauthorized, "invalid API key", err)
	case status == http.StatusNotFound:
		return NewLLMError(op, ErrModelNotAvailable, "model not available", err)
	case status == http.StatusRequestEntityTooLarge:
		return NewLLMError(op, ErrTokenLimitExceeded, "prompt too large", err)
	case status == http.StatusTooManyRequests:
		return NewLLMError(op, ErrRateLimitExceeded, "rate limit exceeded", err)
	case status >= 500:
		return NewLLMError(op, ErrModelNotAvailable, "inference server error", err)
	default:
		return NewLLMError(op, ErrAPIError, "unexpected error", err)
	}
}
