package datasource

const (
	DefaultMaxBytes  = 100 << 20
	DefaultPDFToText = "pdftotext"
)

// LoadOptions configures loaders.
type LoadOptions struct {
	// Recursive makes directory and prefix listings descend into children.
	Recursive bool
	// Filter decides whether a listed name is loaded.
	Filter func(name string) bool
	// MaxBytes caps the size of a single document.
	MaxBytes int64
	// PDFToText is the pdftotext binary used for PDF extraction.
	PDFToText string
}

// Option is a function type to modify LoadOptions
type Option func(*LoadOptions)

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		MaxBytes:  DefaultMaxBytes,
		PDFToText: DefaultPDFToText,
	}
}

// ApplyOptions returns the defaults overridden by opts.
func ApplyOptions(opts ...Option) LoadOptions {
	o := DefaultLoadOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRecursive sets whether to load recursively
func WithRecursive(recursive bool) Option {
	return func(o *LoadOptions) {
		o.Recursive = recursive
	}
}

// WithFilter sets a filter function for listed names
func WithFilter(filter func(name string) bool) Option {
	return func(o *LoadOptions) {
		o.Filter = filter
	}
}

func WithMaxBytes(n int64) Option {
	return func(o *LoadOptions) {
		o.MaxBytes = n
	}
}

func WithPDFToText(bin string) Option {
	return func(o *LoadOptions) {
		o.PDFToText = bin
	}
}

// Accept reports whether name passes the filter and has a supported format.
func (o LoadOptions) Accept(name string) bool {
	if o.Filter != nil && !o.Filter(name) {
		return false
	}
	return DetectFormat(name, "") != FormatUnknown
}
