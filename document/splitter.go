package document

import (
	"strings"
)

// MethodRecursiveTokenSplit is recorded in chunk metadata.
const MethodRecursiveTokenSplit = "RecursiveTokenSplit"

// DefaultSeparators are tried coarsest first: paragraph, line, word.
var DefaultSeparators = []string{"\r\n\r\n", "\n\n", "\r\n", "\n", " "}

// Splitter turns one page of text into chunks.
type Splitter interface {
	Chunk(page Page, source string) []Chunk
}

// Options configures a RecursiveSplitter.
type Options struct {
	WindowSize int // maximum tokens per chunk
	Overlap    int // validated but not applied; chunks are disjoint
	Separators []string
	Tokenizer  Tokenizer
}

type Option func(*Options)

func WithWindowSize(size int) Option {
	return func(o *Options) {
		o.WindowSize = size
	}
}

func WithOverlap(overlap int) Option {
	return func(o *Options) {
		o.Overlap = overlap
	}
}

func WithSeparators(separators ...string) Option {
	return func(o *Options) {
		o.Separators = separators
	}
}

func WithTokenizer(tokenizer Tokenizer) Option {
	return func(o *Options) {
		o.Tokenizer = tokenizer
	}
}

func defaultOptions() *Options {
	return &Options{
		WindowSize: 500,
		Overlap:    100,
		Separators: DefaultSeparators,
		Tokenizer:  EstimateTokenizer{},
	}
}

// RecursiveSplitter splits text on the coarsest separator that keeps
// pieces within WindowSize tokens, descending to finer separators only
// for pieces that are still too large.
type RecursiveSplitter struct {
	opts *Options
}

var _ Splitter = (*RecursiveSplitter)(nil)

func NewRecursiveSplitter(opts ...Option) (*RecursiveSplitter, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.WindowSize <= 0 {
		return nil, newConfigError("new_recursive_splitter",
			"windowSize must be positive", "windowSize=%d", options.WindowSize)
	}
	if options.Overlap < 0 {
		return nil, newConfigError("new_recursive_splitter",
			"overlap must be non-negative", "overlap=%d", options.Overlap)
	}
	if options.Overlap >= options.WindowSize {
		return nil, newConfigError("new_recursive_splitter",
			"overlap must be less than windowSize",
			"overlap=%d windowSize=%d", options.Overlap, options.WindowSize)
	}
	if options.Tokenizer == nil {
		options.Tokenizer = EstimateTokenizer{}
	}

	return &RecursiveSplitter{opts: options}, nil
}

// WindowSize returns the configured token budget per chunk.
func (s *RecursiveSplitter) WindowSize() int {
	return s.opts.WindowSize
}

// CountTokens uses the same tokenizer as the split decisions.
func (s *RecursiveSplitter) CountTokens(text string) int {
	return s.opts.Tokenizer.CountTokens(text)
}

type workItem struct {
	text       string
	separators []string
}

// SplitText returns the pieces of text in document order. Pieces are not
// trimmed and may be blank.
func (s *RecursiveSplitter) SplitText(text string) []string {
	var out []string
	stack := []workItem{{text: text, separators: s.opts.Separators}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.CountTokens(item.text) <= s.opts.WindowSize {
			out = append(out, item.text)
			continue
		}

		sep, finer, ok := firstSeparator(item.text, item.separators)
		if !ok {
			out = append(out, s.hardSplit(item.text)...)
			continue
		}

		next := s.merge(strings.Split(item.text, sep), sep, finer)
		// push in reverse so the first piece is popped first
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}

	return out
}

// Chunk splits page and wraps every non-blank piece as a Chunk.
func (s *RecursiveSplitter) Chunk(page Page, source string) []Chunk {
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}

	var chunks []Chunk
	for _, piece := range s.SplitText(page.Text) {
		text := strings.TrimSpace(piece)
		if text == "" {
			continue
		}
		ordinal := len(chunks)
		chunks = append(chunks, Chunk{
			ID:         ChunkID(source, page.Number, ordinal),
			Text:       text,
			Source:     source,
			PageNumber: page.Number,
			Metadata: map[string]any{
				MetaTokenCount: s.CountTokens(piece),
				MetaMethod:     MethodRecursiveTokenSplit,
				MetaChunkIndex: ordinal,
			},
		})
	}

	return chunks
}

// merge greedily joins pieces while they fit. Pieces that are too large
// on their own are returned with the finer separators still to try.
func (s *RecursiveSplitter) merge(pieces []string, sep string, finer []string) []workItem {
	var items []workItem
	var buf string

	flush := func() {
		if buf != "" {
			items = append(items, workItem{text: buf})
			buf = ""
		}
	}

	for _, piece := range pieces {
		if piece == "" {
			continue
		}

		if s.CountTokens(piece) > s.opts.WindowSize {
			flush()
			items = append(items, workItem{text: piece, separators: finer})
			continue
		}

		if buf == "" {
			buf = piece
			continue
		}

		candidate := buf + sep + piece
		if s.CountTokens(candidate) <= s.opts.WindowSize {
			buf = candidate
		} else {
			flush()
			buf = piece
		}
	}
	flush()

	return items
}

// hardSplit cuts text into slices of WindowSize*CharsPerToken runes.
func (s *RecursiveSplitter) hardSplit(text string) []string {
	size := s.opts.WindowSize * CharsPerToken
	runes := []rune(text)

	var out []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

func firstSeparator(text string, separators []string) (string, []string, bool) {
	for i, sep := range separators {
		if strings.Contains(text, sep) {
			return sep, separators[i+1:], true
		}
	}
	return "", nil, false
}
