package catalog

import "time"

// Clock returns the current time.
type Clock func() time.Time

// Options contains configuration for the catalog
type Options struct {
	ReturnLimit int   // Default limit for Documents
	Now         Clock // Time source for CreatedAt and UpdatedAt
}

// Option is a function type to modify Options
type Option func(*Options)

// WithReturnLimit sets the default limit for Documents
func WithReturnLimit(limit int) Option {
	return func(o *Options) {
		o.ReturnLimit = limit
	}
}

// WithClock sets the time source
func WithClock(now Clock) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		ReturnLimit: 100,
		Now:         time.Now,
	}
}
