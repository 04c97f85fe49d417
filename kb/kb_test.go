package kb

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/finrag/adapters/inmemory"
	"github.com/Abraxas-365/finrag/catalog"
	"github.com/Abraxas-365/finrag/datasource"
	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/embedding"
	"github.com/Abraxas-365/finrag/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	embedder := &wordEmbedder{}
	vs := vectorstore.New(inmemory.NewVectorStore(vectorstore.Cosine), embedder)
	splitter, err := document.NewRecursiveSplitter()
	require.NoError(t, err)

	tests := []struct {
		name     string
		loader   *pageLoader
		embedder *wordEmbedder
		opts     []Option
	}{
		{"missing loader", nil, embedder, nil},
		{"missing embedder", textPages("x"), nil, nil},
		{"empty collection", textPages("x"), embedder, []Option{WithCollection("")}},
		{"zero top-n", textPages("x"), embedder, []Option{WithTopN(0)}},
		{"negative candidate limit", textPages("x"), embedder, []Option{WithCandidateLimit(-1)}},
		{"zero context budget", textPages("x"), embedder, []Option{WithMaxContextChars(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				l datasource.Loader
				e embedding.Embedder
			)
			if tt.loader != nil {
				l = tt.loader
			}
			if tt.embedder != nil {
				e = tt.embedder
			}
			_, err := New(l, splitter, e, vs, tt.opts...)
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrCodeInvalidConfig))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	f := newFixture(t, textPages("x"))

	opts := f.kb.GetOptions()
	assert.Equal(t, DefaultCollection, opts.Collection)
	assert.Equal(t, DefaultCandidateLimit, opts.CandidateLimit)
	assert.Equal(t, DefaultTopN, opts.TopN)
	assert.Equal(t, DefaultMaxContextChars, opts.MaxContextChars)
	assert.Nil(t, opts.Reranker)
}

func TestReset(t *testing.T) {
	f := newFixture(t, textPages("Revenue was $1B.", "Margins improved."))

	_, err := f.kb.Ingest(context.Background(), source, nil)
	require.NoError(t, err)
	require.Positive(t, f.backend.Count(DefaultCollection))

	require.NoError(t, f.kb.Reset(context.Background()))
	assert.Zero(t, f.backend.Count(DefaultCollection))

	stats, err := f.catalog.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	results, err := f.kb.Retrieve(context.Background(), "revenue")
	require.NoError(t, err)
	assert.Empty(t, results)

	// resetting an empty knowledge base is fine
	require.NoError(t, f.kb.Reset(context.Background()))
}

func TestDocuments(t *testing.T) {
	f := newFixture(t, textPages("Revenue was $1B."))

	_, err := f.kb.Ingest(context.Background(), source, nil)
	require.NoError(t, err)

	docs, err := f.kb.Documents(context.Background(), catalog.Filter{Statuses: []catalog.Status{catalog.StatusIngested}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "report.txt", docs[0].FileName)

	docs, err = f.kb.Documents(context.Background(), catalog.Filter{Statuses: []catalog.Status{catalog.StatusError}})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocuments_NoCatalog(t *testing.T) {
	f := newFixture(t, textPages("x"), WithCatalog(nil))

	_, err := f.kb.Documents(context.Background(), catalog.Filter{})
	assert.ErrorIs(t, err, ErrNoCatalog)
}

type warmGenerator struct {
	scriptedGenerator
	err error
}

func (g *warmGenerator) WarmUp(ctx context.Context) error { return g.err }

func TestWarmUp(t *testing.T) {
	gen := &warmGenerator{err: errors.New("model not pulled")}
	f := newFixture(t, textPages("x"), WithLLM(gen))

	results := f.kb.WarmUp(context.Background())
	require.Len(t, results, 2)

	assert.Equal(t, "embedder", results[0].Component)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "generator", results[1].Component)
	assert.EqualError(t, results[1].Err, "model not pulled")
}
