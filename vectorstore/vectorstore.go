package vectorstore

import (
	"context"
	"sort"

	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/embedding"
)

// SearchResult is a stored chunk returned by retrieval or reranking.
type SearchResult struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Source     string         `json:"source"`
	PageNumber int            `json:"page_number"`
	Score      float32        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

// Store interface defines the operations that any vector database adapter must implement
type Store interface {
	// EnsureCollection creates the collection with the given vector size
	// if it does not exist yet.
	EnsureCollection(ctx context.Context, collection string, dimensions int) error

	// Upsert writes all chunks in one call, replacing chunks with the same ID.
	Upsert(ctx context.Context, collection string, chunks []document.Chunk) error

	// Search returns the closest chunks, best first. A missing collection
	// yields no results.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error)

	// DeleteCollection drops the collection; a missing collection is not an error.
	DeleteCollection(ctx context.Context, collection string) error
}

// VectorStore is the main struct that combines the database adapter and embedder
type VectorStore struct {
	store    Store
	embedder embedding.Embedder
	opts     *Options
}

// New creates a new VectorStore instance
func New(store Store, embedder embedding.Embedder, opts ...Option) *VectorStore {
	options := &Options{
		ScoreThreshold: 0.0,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &VectorStore{
		store:    store,
		embedder: embedder,
		opts:     options,
	}
}

// Dimensions returns the configured vector size, or zero when it is
// taken from the first upserted chunk.
func (vs *VectorStore) Dimensions() int {
	return vs.opts.Dimensions
}

// Upsert validates that every chunk carries a vector of the configured
// size, creates the collection if needed and writes all chunks at once.
// Nothing is written when validation fails.
func (vs *VectorStore) Upsert(ctx context.Context, collection string, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dimensions := vs.opts.Dimensions
	if dimensions == 0 {
		dimensions = len(chunks[0].Vector)
	}

	batch := make([]document.Chunk, len(chunks))
	for i, c := range chunks {
		if len(c.Vector) == 0 {
			return NewMissingVectorError(storeName, c.ID)
		}
		if len(c.Vector) != dimensions {
			return NewInvalidDimensionsError(storeName, dimensions, len(c.Vector))
		}
		batch[i] = c.Clone()
	}

	if err := vs.store.EnsureCollection(ctx, collection, dimensions); err != nil {
		return err
	}

	return vs.store.Upsert(ctx, collection, batch)
}

// Search embeds query and returns up to limit results by descending score.
func (vs *VectorStore) Search(ctx context.Context, collection string, query string, limit int) ([]SearchResult, error) {
	vector, err := vs.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewEmbeddingFailedError(storeName, err)
	}

	found, err := vs.store.Search(ctx, collection, vector, limit)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(found))
	for _, r := range found {
		if vs.opts.ScoreThreshold <= 0 || r.Score >= vs.opts.ScoreThreshold {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// DeleteCollection removes the collection and everything in it.
func (vs *VectorStore) DeleteCollection(ctx context.Context, collection string) error {
	return vs.store.DeleteCollection(ctx, collection)
}

const storeName = "vectorstore"
