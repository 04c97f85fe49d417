package embedding

import "time"

// EmbeddingOptions represents configuration options for embedding operations
type EmbeddingOptions struct {
	// Model specifies which embedding model to use
	Model string

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers, Ollama)
	BaseURL string

	// Dimensions is the expected vector length; zero disables the check
	Dimensions int

	// Normalize indicates whether to normalize the resulting vectors
	Normalize bool

	// Timeout bounds a single embedding request
	Timeout time.Duration
}

// Option is a function type to modify EmbeddingOptions
type Option func(*EmbeddingOptions)

// WithModel sets the embedding model
func WithModel(model string) Option {
	return func(o *EmbeddingOptions) {
		o.Model = model
	}
}

// WithBaseURL sets the provider endpoint
func WithBaseURL(url string) Option {
	return func(o *EmbeddingOptions) {
		o.BaseURL = url
	}
}

// WithDimensions sets the expected vector length
func WithDimensions(dimensions int) Option {
	return func(o *EmbeddingOptions) {
		o.Dimensions = dimensions
	}
}

// WithNormalization sets whether to normalize vectors
func WithNormalization(normalize bool) Option {
	return func(o *EmbeddingOptions) {
		o.Normalize = normalize
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *EmbeddingOptions) {
		o.Timeout = timeout
	}
}
