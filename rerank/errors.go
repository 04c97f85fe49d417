package rerank

import (
	"fmt"
	"net/http"
)

// RerankError represents a failure of a reranking service.
type RerankError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *RerankError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rerank.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("rerank.%s: %s", e.Op, e.Message)
}

func (e *RerankError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeRequestTooLarge = "RequestTooLarge"
	ErrCodeRateLimit       = "RateLimit"
	ErrCodeUnavailable     = "Unavailable"
	ErrCodeInvalidResponse = "InvalidResponse"
	ErrCodeAPIError        = "APIError"
)

func NewRerankError(op, code, message string, err error) *RerankError {
	return &RerankError{Op: op, Code: code, Message: message, Err: err}
}

// ErrFromStatus maps an HTTP failure from a reranking server to an error.
func ErrFromStatus(op string, status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusRequestEntityTooLarge:
		return NewRerankError(op, ErrCodeRequestTooLarge, "rerank payload too large", err)
	case status == http.StatusTooManyRequests:
		return NewRerankError(op, ErrCodeRateLimit, "rate limit exceeded", err)
	case status >= 500:
		return NewRerankError(op, ErrCodeUnavailable, "rerank server error", err)
	default:
		return NewRerankError(op, ErrCodeAPIError, "unexpected rerank response", err)
	}
}
