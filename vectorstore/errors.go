package vectorstore

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error types in vector store operations
type ErrorCode string

const (
	ErrCodeInitFailed        ErrorCode = "INIT_FAILED"
	ErrCodeAddFailed         ErrorCode = "ADD_FAILED"
	ErrCodeSearchFailed      ErrorCode = "SEARCH_FAILED"
	ErrCodeDeleteFailed      ErrorCode = "DELETE_FAILED"
	ErrCodeInvalidDimensions ErrorCode = "INVALID_DIMENSIONS"
	ErrCodeMissingVector     ErrorCode = "MISSING_VECTOR"
	ErrCodeEmbeddingFailed   ErrorCode = "EMBEDDING_FAILED"
)

// VectorStoreError represents an error that occurred in vector store operations
type VectorStoreError struct {
	Code    ErrorCode
	Op      string
	Store   string
	Message string
	Err     error
}

func (e *VectorStoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (store: %s, operation: %s) - %v",
			e.Code, e.Message, e.Store, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s (store: %s, operation: %s)",
		e.Code, e.Message, e.Store, e.Op)
}

func (e *VectorStoreError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a VectorStoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var vsErr *VectorStoreError
	return errors.As(err, &vsErr) && vsErr.Code == code
}

// Helper functions to create errors
func NewInitFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeInitFailed,
		Op:      "EnsureCollection",
		Store:   store,
		Message: "failed to create collection",
		Err:     err,
	}
}

func NewAddFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeAddFailed,
		Op:      "Upsert",
		Store:   store,
		Message: "failed to upsert chunks",
		Err:     err,
	}
}

func NewSearchFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeSearchFailed,
		Op:      "Search",
		Store:   store,
		Message: "failed to perform similarity search",
		Err:     err,
	}
}

func NewDeleteFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeDeleteFailed,
		Op:      "DeleteCollection",
		Store:   store,
		Message: "failed to delete collection",
		Err:     err,
	}
}

func NewInvalidDimensionsError(store string, expected, got int) error {
	return &VectorStoreError{
		Code:    ErrCodeInvalidDimensions,
		Op:      "Upsert",
		Store:   store,
		Message: fmt.Sprintf("invalid vector dimensions: expected %d, got %d", expected, got),
	}
}

func NewMissingVectorError(store string, chunkID string) error {
	return &VectorStoreError{
		Code:    ErrCodeMissingVector,
		Op:      "Upsert",
		Store:   store,
		Message: fmt.Sprintf("chunk %s has no vector", chunkID),
	}
}

func NewEmbeddingFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeEmbeddingFailed,
		Op:      "Search",
		Store:   store,
		Message: "failed to embed query",
		Err:     err,
	}
}
