package kb

import (
	"log/slog"

	"github.com/Abraxas-365/finrag/catalog"
	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/llm"
	"github.com/Abraxas-365/finrag/prompt"
	"github.com/Abraxas-365/finrag/rerank"
)

// Defaults for the query pipeline.
const (
	DefaultCollection      = "finance_docs"
	DefaultCandidateLimit  = 10
	DefaultTopN            = 5
	DefaultMaxContextChars = 6000
)

// Options contains configuration for the knowledge base
type Options struct {
	Collection      string
	CandidateLimit  int // results retrieved before reranking
	TopN            int // results kept after reranking
	MaxContextChars int // context budget in characters
	PromptName      string

	Reranker        rerank.Reranker // Optional; nil always falls back
	Generator       llm.Generator   // Optional; Query needs it
	GenerateOptions []llm.Option
	Catalog         *catalog.Catalog // Optional document status tracking
	Prompts         prompt.Store
	Tokenizer       document.Tokenizer // estimates context size for logs
	Logger          *slog.Logger
}

// Option is a function type to modify Options
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Collection:      DefaultCollection,
		CandidateLimit:  DefaultCandidateLimit,
		TopN:            DefaultTopN,
		MaxContextChars: DefaultMaxContextChars,
		PromptName:      prompt.DefaultName,
		Prompts:         prompt.StaticStore{},
		Tokenizer:       document.EstimateTokenizer{},
	}
}

// WithCollection sets the vector store collection
func WithCollection(name string) Option {
	return func(o *Options) {
		o.Collection = name
	}
}

// WithCandidateLimit sets how many results are retrieved before reranking
func WithCandidateLimit(n int) Option {
	return func(o *Options) {
		o.CandidateLimit = n
	}
}

// WithTopN sets how many results survive reranking
func WithTopN(n int) Option {
	return func(o *Options) {
		o.TopN = n
	}
}

// WithMaxContextChars sets the context budget in characters
func WithMaxContextChars(n int) Option {
	return func(o *Options) {
		o.MaxContextChars = n
	}
}

func WithReranker(r rerank.Reranker) Option {
	return func(o *Options) {
		o.Reranker = r
	}
}

// WithLLM sets the generator used to answer queries
func WithLLM(g llm.Generator, opts ...llm.Option) Option {
	return func(o *Options) {
		o.Generator = g
		o.GenerateOptions = opts
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(o *Options) {
		o.Catalog = c
	}
}

// WithPrompts sets the template store and the template name to render
func WithPrompts(store prompt.Store, name string) Option {
	return func(o *Options) {
		o.Prompts = store
		if name != "" {
			o.PromptName = name
		}
	}
}

func WithTokenizer(t document.Tokenizer) Option {
	return func(o *Options) {
		o.Tokenizer = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
