package llm

// GenerateOptions represents options for a generation call
type GenerateOptions struct {
	Temperature  float32  // Controls randomness (0.0 to 2.0)
	TopP         float32  // Controls diversity (0.0 to 1.0)
	MaxTokens    int      // Maximum number of tokens to generate
	Stop         []string // Stop sequences
	SystemPrompt string   // Optional system instruction
}

// Option is a function type to modify GenerateOptions
type Option func(*GenerateOptions)

// Common option functions
func WithTemperature(temp float32) Option {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

func WithTopP(topP float32) Option {
	return func(o *GenerateOptions) {
		o.TopP = topP
	}
}

func WithMaxTokens(tokens int) Option {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

func WithStop(stop []string) Option {
	return func(o *GenerateOptions) {
		o.Stop = stop
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(o *GenerateOptions) {
		o.SystemPrompt = prompt
	}
}

// DefaultOptions are tuned for grounded answers.
func DefaultOptions() *GenerateOptions {
	return &GenerateOptions{
		Temperature: 0.1,
	}
}

// ApplyOptions returns the defaults with opts applied.
func ApplyOptions(opts ...Option) *GenerateOptions {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}
