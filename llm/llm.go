package llm

import (
	"context"
)

// Generator produces an answer for a prompt as a stream of fragments.
type Generator interface {
	// Stream starts generation and returns a channel that yields fragments
	// in order. The channel is closed after a Done or Error response, or
	// when ctx is cancelled. Cancelling ctx must stop the upstream call.
	Stream(ctx context.Context, prompt string, opts ...Option) (<-chan StreamResponse, error)
}

// StreamResponse represents a streaming response
type StreamResponse struct {
	Content string
	Usage   *Usage
	Error   error
	Done    bool
}

// Send delivers resp unless ctx is cancelled first. It reports whether
// the response was delivered.
func Send(ctx context.Context, ch chan<- StreamResponse, resp StreamResponse) bool {
	select {
	case ch <- resp:
		return true
	case <-ctx.Done():
		return false
	}
}
