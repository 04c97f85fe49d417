package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/finrag/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	ensured   map[string]int
	upserted  []document.Chunk
	results   []SearchResult
	lastLimit int
	deleted   []string
	err       error
}

func (m *mockStore) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	if m.ensured == nil {
		m.ensured = make(map[string]int)
	}
	m.ensured[collection] = dimensions
	return m.err
}

func (m *mockStore) Upsert(ctx context.Context, collection string, chunks []document.Chunk) error {
	m.upserted = append(m.upserted, chunks...)
	return m.err
}

func (m *mockStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error) {
	m.lastLimit = limit
	return m.results, m.err
}

func (m *mockStore) DeleteCollection(ctx context.Context, collection string) error {
	m.deleted = append(m.deleted, collection)
	return m.err
}

type mockEmbedder struct {
	vector []float32
	err    error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.vector, m.err
}

func TestVectorStore_UpsertRejectsMissingVector(t *testing.T) {
	store := &mockStore{}
	vs := New(store, &mockEmbedder{}, WithDimensions(2))

	err := vs.Upsert(context.Background(), "docs", []document.Chunk{
		{ID: "a", Vector: []float32{1, 2}},
		{ID: "b"},
	})

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeMissingVector))
	assert.Empty(t, store.ensured)
	assert.Empty(t, store.upserted)
}

func TestVectorStore_UpsertRejectsWrongDimensions(t *testing.T) {
	store := &mockStore{}
	vs := New(store, &mockEmbedder{}, WithDimensions(3))

	err := vs.Upsert(context.Background(), "docs", []document.Chunk{{ID: "a", Vector: []float32{1, 2}}})

	assert.True(t, IsCode(err, ErrCodeInvalidDimensions))
	assert.Empty(t, store.upserted)
}

func TestVectorStore_UpsertEnsuresCollection(t *testing.T) {
	store := &mockStore{}
	vs := New(store, &mockEmbedder{})
	chunks := []document.Chunk{
		{ID: "a", Vector: []float32{1, 2}, Metadata: map[string]any{"k": 1}},
		{ID: "b", Vector: []float32{3, 4}},
	}

	require.NoError(t, vs.Upsert(context.Background(), "docs", chunks))
	assert.Equal(t, 2, store.ensured["docs"])
	require.Len(t, store.upserted, 2)

	// the store receives copies
	store.upserted[0].Vector[0] = 42
	assert.Equal(t, float32(1), chunks[0].Vector[0])
}

func TestVectorStore_UpsertEmptyIsNoop(t *testing.T) {
	store := &mockStore{}
	require.NoError(t, New(store, &mockEmbedder{}).Upsert(context.Background(), "docs", nil))
	assert.Empty(t, store.ensured)
}

func TestVectorStore_Search(t *testing.T) {
	store := &mockStore{results: []SearchResult{
		{ID: "low", Score: 0.2},
		{ID: "high", Score: 0.9},
		{ID: "mid", Score: 0.5},
	}}
	vs := New(store, &mockEmbedder{vector: []float32{1}}, WithScoreThreshold(0.3))

	results, err := vs.Search(context.Background(), "docs", "revenue", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].ID)
	assert.Equal(t, "mid", results[1].ID)
	assert.Equal(t, 10, store.lastLimit)
}

func TestVectorStore_SearchEmbeddingFailure(t *testing.T) {
	vs := New(&mockStore{}, &mockEmbedder{err: errors.New("ollama down")})

	_, err := vs.Search(context.Background(), "docs", "revenue", 10)
	assert.True(t, IsCode(err, ErrCodeEmbeddingFailed))
	assert.ErrorContains(t, err, "ollama down")
}

func TestVectorStore_DeleteCollection(t *testing.T) {
	store := &mockStore{}
	require.NoError(t, New(store, &mockEmbedder{}).DeleteCollection(context.Background(), "docs"))
	assert.Equal(t, []string{"docs"}, store.deleted)
}
