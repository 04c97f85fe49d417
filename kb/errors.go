package kb

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned when a source yields no pages or no chunks.
	ErrEmptyDocument = errors.New("document produced no content")
	// ErrCancelled is returned when ctx ends an operation early. Errors
	// carrying it also match context.Canceled or context.DeadlineExceeded.
	ErrCancelled = errors.New("operation cancelled")
	// ErrNoGenerator is returned by Query when no generator is configured.
	ErrNoGenerator = errors.New("no generator configured")
	// ErrNoCatalog is returned by catalog operations when none is configured.
	ErrNoCatalog = errors.New("no document catalog configured")
)

// Error codes carried by *Error.
const (
	ErrCodeEmptyDocument = "EMPTY_DOCUMENT"
	ErrCodeCancelled     = "CANCELLED"
	ErrCodeNoGenerator   = "NO_GENERATOR"
	ErrCodeLoadFailed    = "LOAD_FAILED"
	ErrCodeEmbedFailed   = "EMBED_FAILED"
	ErrCodeStoreFailed   = "STORE_FAILED"
	ErrCodeSearchFailed  = "SEARCH_FAILED"
	ErrCodePromptFailed  = "PROMPT_FAILED"
	ErrCodeGenerateFail  = "GENERATE_FAILED"
	ErrCodeInvalidConfig = "INVALID_CONFIG"
)

// Error represents a pipeline failure
type Error struct {
	Op      string
	Code    string
	Source  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	prefix := "kb." + e.Op
	if e.Source != "" {
		prefix += " [" + e.Source + "]"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	var kbErr *Error
	return errors.As(err, &kbErr) && kbErr.Code == code
}

func newError(op, code, source, message string, err error) *Error {
	return &Error{Op: op, Code: code, Source: source, Message: message, Err: err}
}

func cancelledError(op, source string, cause error) *Error {
	return newError(op, ErrCodeCancelled, source, "cancelled", fmt.Errorf("%w: %w", ErrCancelled, cause))
}

func emptyDocumentError(source, message string) *Error {
	return newError("Ingest", ErrCodeEmptyDocument, source, message, ErrEmptyDocument)
}
