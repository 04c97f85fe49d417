package document

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every splitter construction failure.
var ErrInvalidConfig = errors.New("invalid splitter configuration")

// SplitterError represents errors that can occur during text splitting
type SplitterError struct {
	Op      string
	Message string
	Err     error
}

func (e *SplitterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("splitter.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("splitter.%s: %s", e.Op, e.Message)
}

func (e *SplitterError) Unwrap() error {
	return e.Err
}

func newConfigError(op, message string, format string, args ...any) *SplitterError {
	return &SplitterError{
		Op:      op,
		Message: message,
		Err:     fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...),
	}
}
