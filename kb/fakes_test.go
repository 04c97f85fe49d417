package kb

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Abraxas-365/finrag/adapters/inmemory"
	"github.com/Abraxas-365/finrag/catalog"
	"github.com/Abraxas-365/finrag/datasource"
	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/llm"
	"github.com/Abraxas-365/finrag/vectorstore"
	"github.com/stretchr/testify/require"
)

const testDims = 32

// wordEmbedder hashes words into buckets so texts sharing words score
// higher. Bucket zero is a constant bias that keeps vectors non-zero.
type wordEmbedder struct {
	calls  atomic.Int32
	onCall func(n int)
	empty  bool
	warm   error
}

func (e *wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	n := int(e.calls.Add(1))
	if e.onCall != nil {
		e.onCall(n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.empty {
		return []float32{}, nil
	}

	vec := make([]float32, testDims)
	vec[0] = 0.1
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!$")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[1+int(h.Sum32()%(testDims-1))]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func (e *wordEmbedder) WarmUp(ctx context.Context) error { return e.warm }

type pageLoader struct {
	pages []document.Page
	err   error
}

func (l *pageLoader) Load(ctx context.Context, source string) (<-chan document.Page, <-chan error) {
	return datasource.Stream(ctx, func(emit func(document.Page) bool) error {
		for _, p := range l.pages {
			if !emit(p) {
				return nil
			}
		}
		return l.err
	})
}

func textPages(texts ...string) *pageLoader {
	l := &pageLoader{}
	for i, t := range texts {
		l.pages = append(l.pages, document.Page{Text: t, Number: i + 1})
	}
	return l
}

// spyStore counts backend writes.
type spyStore struct {
	vectorstore.Store
	upserts atomic.Int32
}

func (s *spyStore) Upsert(ctx context.Context, collection string, chunks []document.Chunk) error {
	s.upserts.Add(1)
	return s.Store.Upsert(ctx, collection, chunks)
}

type scriptedGenerator struct {
	mu        sync.Mutex
	prompts   []string
	fragments []string
	err       error
}

func (g *scriptedGenerator) Stream(ctx context.Context, prompt string, opts ...llm.Option) (<-chan llm.StreamResponse, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	ch := make(chan llm.StreamResponse)
	go func() {
		defer close(ch)
		for _, f := range g.fragments {
			if !llm.Send(ctx, ch, llm.StreamResponse{Content: f}) {
				return
			}
		}
		if g.err != nil {
			llm.Send(ctx, ch, llm.StreamResponse{Error: g.err})
			return
		}
		llm.Send(ctx, ch, llm.StreamResponse{Done: true})
	}()
	return ch, nil
}

func (g *scriptedGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// blockingGenerator emits one fragment and then waits for cancellation.
type blockingGenerator struct {
	stopped chan struct{}
}

func (g *blockingGenerator) Stream(ctx context.Context, prompt string, opts ...llm.Option) (<-chan llm.StreamResponse, error) {
	ch := make(chan llm.StreamResponse)
	go func() {
		defer close(g.stopped)
		defer close(ch)
		if !llm.Send(ctx, ch, llm.StreamResponse{Content: "partial"}) {
			return
		}
		<-ctx.Done()
	}()
	return ch, nil
}

type funcReranker func(candidates []vectorstore.SearchResult, topN int) ([]vectorstore.SearchResult, error)

func (f funcReranker) Rerank(ctx context.Context, query string, candidates []vectorstore.SearchResult, topN int) ([]vectorstore.SearchResult, error) {
	return f(candidates, topN)
}

var errRerankDown = errors.New("reranker unavailable")

type fixture struct {
	kb       *KnowledgeBase
	backend  *inmemory.VectorStore
	spy      *spyStore
	embedder *wordEmbedder
	catalog  *catalog.Catalog
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, loader datasource.Loader, opts ...Option) *fixture {
	t.Helper()

	backend := inmemory.NewVectorStore(vectorstore.Cosine)
	spy := &spyStore{Store: backend}
	embedder := &wordEmbedder{}
	cat := catalog.New(inmemory.NewCatalogRepository())

	splitter, err := document.NewRecursiveSplitter()
	require.NoError(t, err)

	all := append([]Option{WithCatalog(cat), WithLogger(discardLogger())}, opts...)
	k, err := New(loader, splitter, embedder, vectorstore.New(spy, embedder, vectorstore.WithDimensions(testDims)), all...)
	require.NoError(t, err)

	return &fixture{kb: k, backend: backend, spy: spy, embedder: embedder, catalog: cat}
}
