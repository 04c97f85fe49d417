package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQdrant records requests and serves a tiny subset of the REST API.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]map[string]any
	points      map[string][]point
	apiKeys     []string
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		collections: make(map[string]map[string]any),
		points:      make(map[string][]point),
	}
}

func (f *fakeQdrant) collection(name string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[name]
	return c, ok
}

func (f *fakeQdrant) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.apiKeys...)
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/collections/"), "/")
	name := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		if _, ok := f.collections[name]; !ok {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"result":{"status":"green"}}`)
	case len(parts) == 1 && r.Method == http.MethodPut:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.collections[name] = body
		fmt.Fprint(w, `{"result":true}`)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, ok := f.collections[name]; !ok {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		delete(f.collections, name)
		delete(f.points, name)
		fmt.Fprint(w, `{"result":true}`)
	case len(parts) == 2 && parts[1] == "points" && r.Method == http.MethodPut:
		var body struct {
			Points []point `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points[name] = append(f.points[name], body.Points...)
		fmt.Fprint(w, `{"result":{"status":"completed"}}`)
	case len(parts) == 3 && parts[2] == "search":
		if _, ok := f.collections[name]; !ok {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		var result []map[string]any
		for i, p := range f.points[name] {
			result = append(result, map[string]any{
				"id":      p.ID,
				"score":   1.0 - float64(i)*0.1,
				"payload": p.Payload,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	fake := newFakeQdrant()
	server := httptest.NewServer(fake)
	defer server.Close()

	ctx := context.Background()
	store := NewStore(Config{URL: server.URL, APIKey: "secret"})

	require.NoError(t, store.EnsureCollection(ctx, "finance_docs", 3))
	require.NoError(t, store.EnsureCollection(ctx, "finance_docs", 3))

	created, ok := fake.collection("finance_docs")
	require.True(t, ok)
	vectors := created["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	chunk := document.Chunk{
		ID:         document.ChunkID("report.pdf", 2, 0),
		Text:       "Revenue was $1B.",
		Source:     "report.pdf",
		PageNumber: 2,
		Vector:     []float32{0.1, 0.2, 0.3},
		Metadata:   map[string]any{document.MetaMethod: document.MethodRecursiveTokenSplit},
	}
	require.NoError(t, store.Upsert(ctx, "finance_docs", []document.Chunk{chunk}))

	results, err := store.Search(ctx, "finance_docs", []float32{0.1, 0.2, 0.3}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, chunk.ID, results[0].ID)
	assert.Equal(t, "Revenue was $1B.", results[0].Text)
	assert.Equal(t, "report.pdf", results[0].Source)
	assert.Equal(t, 2, results[0].PageNumber)
	assert.Equal(t, document.MethodRecursiveTokenSplit, results[0].Metadata[document.MetaMethod])

	for _, key := range fake.keys() {
		assert.Equal(t, "secret", key)
	}
}

func TestStore_MissingCollection(t *testing.T) {
	server := httptest.NewServer(newFakeQdrant())
	defer server.Close()

	ctx := context.Background()
	store := NewStore(Config{URL: server.URL})

	results, err := store.Search(ctx, "missing", []float32{1}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.NoError(t, store.DeleteCollection(ctx, "missing"))
}

func TestStore_DeleteCollection(t *testing.T) {
	fake := newFakeQdrant()
	server := httptest.NewServer(fake)
	defer server.Close()

	ctx := context.Background()
	store := NewStore(Config{URL: server.URL, Distance: vectorstore.DotProduct})
	require.NoError(t, store.EnsureCollection(ctx, "docs", 2))
	created, ok := fake.collection("docs")
	require.True(t, ok)
	assert.Equal(t, "Dot", created["vectors"].(map[string]any)["distance"])

	require.NoError(t, store.DeleteCollection(ctx, "docs"))
	_, ok = fake.collection("docs")
	assert.False(t, ok)
}

func TestStore_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx := context.Background()
	store := NewStore(Config{URL: server.URL})

	err := store.EnsureCollection(ctx, "docs", 2)
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeInitFailed))

	err = store.Upsert(ctx, "docs", []document.Chunk{{ID: "a", Vector: []float32{1, 2}}})
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeAddFailed))

	_, err = store.Search(ctx, "docs", []float32{1, 2}, 5)
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeSearchFailed))

	err = store.DeleteCollection(ctx, "docs")
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeDeleteFailed))
}
