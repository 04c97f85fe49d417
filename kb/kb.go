package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Abraxas-365/finrag/catalog"
	"github.com/Abraxas-365/finrag/datasource"
	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/embedding"
	"github.com/Abraxas-365/finrag/vectorstore"
)

// KnowledgeBase runs the ingestion and query pipelines. It holds no
// mutable state, so Ingest and Query may be called concurrently.
type KnowledgeBase struct {
	loader   datasource.Loader
	splitter document.Splitter
	embedder embedding.Embedder
	vStore   *vectorstore.VectorStore
	opts     *Options
	logger   *slog.Logger
}

// New creates a new KnowledgeBase instance with the provided options
func New(
	loader datasource.Loader,
	splitter document.Splitter,
	embedder embedding.Embedder,
	vStore *vectorstore.VectorStore,
	opts ...Option,
) (*KnowledgeBase, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	switch {
	case loader == nil, splitter == nil, embedder == nil, vStore == nil:
		return nil, newError("New", ErrCodeInvalidConfig, "", "loader, splitter, embedder and vector store are required", nil)
	case options.Collection == "":
		return nil, newError("New", ErrCodeInvalidConfig, "", "collection name is required", nil)
	case options.CandidateLimit <= 0 || options.TopN <= 0 || options.MaxContextChars <= 0:
		return nil, newError("New", ErrCodeInvalidConfig, "",
			fmt.Sprintf("candidate limit (%d), top-n (%d) and context budget (%d) must be positive",
				options.CandidateLimit, options.TopN, options.MaxContextChars), nil)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if options.Tokenizer == nil {
		options.Tokenizer = document.EstimateTokenizer{}
	}

	return &KnowledgeBase{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		vStore:   vStore,
		opts:     options,
		logger:   logger,
	}, nil
}

// GetOptions returns a copy of the current options
func (kb *KnowledgeBase) GetOptions() Options {
	return *kb.opts
}

// HasLLM returns whether the knowledge base has a generator configured
func (kb *KnowledgeBase) HasLLM() bool {
	return kb.opts.Generator != nil
}

// warmer is implemented by adapters that can preload their models.
type warmer interface {
	WarmUp(ctx context.Context) error
}

// WarmUpResult reports the warm-up of one component.
type WarmUpResult struct {
	Component string
	Err       error
}

// WarmUp asks every configured component that supports it to load its
// model. Failures are logged and reported but never returned as errors.
func (kb *KnowledgeBase) WarmUp(ctx context.Context) []WarmUpResult {
	components := []struct {
		name string
		c    any
	}{
		{"embedder", kb.embedder},
		{"reranker", kb.opts.Reranker},
		{"generator", kb.opts.Generator},
	}

	var results []WarmUpResult
	for _, comp := range components {
		w, ok := comp.c.(warmer)
		if !ok {
			continue
		}

		err := w.WarmUp(ctx)
		if err != nil {
			kb.logger.Warn("warm-up failed", "component", comp.name, "error", err)
		} else {
			kb.logger.Info("warm-up complete", "component", comp.name)
		}
		results = append(results, WarmUpResult{Component: comp.name, Err: err})
	}
	return results
}

// Reset deletes the collection and clears the catalog. Resetting an empty
// knowledge base is a no-op.
func (kb *KnowledgeBase) Reset(ctx context.Context) error {
	kb.logger.Warn("hard reset", "collection", kb.opts.Collection)

	if err := kb.vStore.DeleteCollection(ctx, kb.opts.Collection); err != nil {
		return newError("Reset", ErrCodeStoreFailed, "", "failed to delete collection", err)
	}

	if kb.opts.Catalog != nil {
		if err := kb.opts.Catalog.Clear(ctx); err != nil {
			return newError("Reset", ErrCodeStoreFailed, "", "failed to clear catalog", err)
		}
	}
	return nil
}

// Documents lists catalog entries.
func (kb *KnowledgeBase) Documents(ctx context.Context, filter catalog.Filter) ([]catalog.Document, error) {
	if kb.opts.Catalog == nil {
		return nil, ErrNoCatalog
	}
	return kb.opts.Catalog.Documents(ctx, filter, 0)
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
