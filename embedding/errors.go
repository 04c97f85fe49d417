package embedding

import (
	"fmt"
	"net/http"
)

// EmbeddingError represents errors that can occur during embedding operations
type EmbeddingError struct {
	Op      string
	Err     error
	Code    string
	Message string
}

// Error implements the error interface
func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("embedding.%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error
func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Common error codes for embedding operations
const (
	ErrCodeInvalidInput       = "InvalidInput"
	ErrCodeTokenLimitExceeded = "TokenLimitExceeded"
	ErrCodeModelNotAvailable  = "ModelNotAvailable"
	ErrCodeRateLimitExceeded  = "RateLimitExceeded"
	ErrCodeUnauthorized       = "Unauthorized"
	ErrCodeContextCanceled    = "ContextCanceled"
	ErrCodeInvalidDimensions  = "InvalidDimensions"
	ErrCodeEmptyInput         = "EmptyInput"
	ErrCodeEmptyResponse      = "EmptyResponse"
	ErrCodeAPIError           = "APIError"
	ErrCodeInternal           = "Internal"
)

// NewEmbeddingError creates a new EmbeddingError
func NewEmbeddingError(op string, err error, code, message string) *EmbeddingError {
	return &EmbeddingError{
		Op:      op,
		Err:     err,
		Code:    code,
		Message: message,
	}
}

// Common error constructors for frequent error cases
func ErrInvalidInput(op string, err error, details string) error {
	return NewEmbeddingError(op, err, ErrCodeInvalidInput,
		fmt.Sprintf("invalid input: %s", details))
}

func ErrTokenLimitExceeded(op string, err error) error {
	return NewEmbeddingError(op, err, ErrCodeTokenLimitExceeded,
		"token limit exceeded for input text")
}

func ErrModelNotAvailable(op string, err error) error {
	return NewEmbeddingError(op, err, ErrCodeModelNotAvailable,
		"embedding model is not available")
}

func ErrRateLimitExceeded(op string, err error) error {
	return NewEmbeddingError(op, err, ErrCodeRateLimitExceeded,
		"rate limit exceeded for embedding requests")
}

func ErrEmptyInput(op string) error {
	return NewEmbeddingError(op, nil, ErrCodeEmptyInput,
		"input text cannot be empty")
}

func ErrEmptyResponse(op string) error {
	return NewEmbeddingError(op, nil, ErrCodeEmptyResponse,
		"embedding service returned an empty vector")
}

func ErrInvalidDimensions(op string, want, got int) error {
	return NewEmbeddingError(op, nil, ErrCodeInvalidDimensions,
		fmt.Sprintf("expected %d dimensions, got %d", want, got))
}

// ErrFromStatus maps an HTTP failure from an embedding server to an error.
func ErrFromStatus(op string, status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusBadRequest:
		return ErrInvalidInput(op, err, body)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewEmbeddingError(op, err, ErrCodeUnauthorized, "invalid API key")
	case status == http.StatusNotFound:
		return ErrModelNotAvailable(op, err)
	case status == http.StatusRequestEntityTooLarge:
		return ErrTokenLimitExceeded(op, err)
	case status == http.StatusTooManyRequests:
		return ErrRateLimitExceeded(op, err)
	case status >= 500:
		return NewEmbeddingError(op, err, ErrCodeModelNotAvailable, "embedding server error")
	default:
		return NewEmbeddingError(op, err, ErrCodeAPIError, "unexpected embedding response")
	}
}
