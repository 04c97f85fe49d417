package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/vectorstore"
)

const storeName = "inmemory"

type collection struct {
	dimensions int
	order      []string
	chunks     map[string]document.Chunk
}

// VectorStore keeps collections in process memory and searches them by
// brute force. It is intended for tests and single-process use.
type VectorStore struct {
	mu          sync.RWMutex
	distance    vectorstore.DistanceMetric
	collections map[string]*collection
}

var _ vectorstore.Store = (*VectorStore)(nil)

func NewVectorStore(distance vectorstore.DistanceMetric) *VectorStore {
	if distance == "" {
		distance = vectorstore.Cosine
	}
	return &VectorStore{
		distance:    distance,
		collections: make(map[string]*collection),
	}
}

func (s *VectorStore) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		if c.dimensions != dimensions {
			return vectorstore.NewInvalidDimensionsError(storeName, c.dimensions, dimensions)
		}
		return nil
	}

	s.collections[name] = &collection{
		dimensions: dimensions,
		chunks:     make(map[string]document.Chunk),
	}
	return nil
}

func (s *VectorStore) Upsert(ctx context.Context, name string, chunks []document.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return vectorstore.NewAddFailedError(storeName, errCollectionMissing(name))
	}

	// validate first so the write is all-or-nothing
	for _, chunk := range chunks {
		if len(chunk.Vector) != c.dimensions {
			return vectorstore.NewInvalidDimensionsError(storeName, c.dimensions, len(chunk.Vector))
		}
	}

	for _, chunk := range chunks {
		if _, exists := c.chunks[chunk.ID]; !exists {
			c.order = append(c.order, chunk.ID)
		}
		c.chunks[chunk.ID] = chunk.Clone()
	}
	return nil
}

func (s *VectorStore) Search(ctx context.Context, name string, vector []float32, limit int) ([]vectorstore.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	if len(vector) != c.dimensions {
		return nil, vectorstore.NewSearchFailedError(storeName,
			vectorstore.NewInvalidDimensionsError(storeName, c.dimensions, len(vector)))
	}

	results := make([]vectorstore.SearchResult, 0, len(c.order))
	for _, id := range c.order {
		chunk := c.chunks[id]
		results = append(results, vectorstore.SearchResult{
			ID:         chunk.ID,
			Text:       chunk.Text,
			Source:     chunk.Source,
			PageNumber: chunk.PageNumber,
			Score:      s.score(vector, chunk.Vector),
			Metadata:   copyMap(chunk.Metadata),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *VectorStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, name)
	return nil
}

// Count returns the number of chunks stored in the collection.
func (s *VectorStore) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collections[name]; ok {
		return len(c.chunks)
	}
	return 0
}

func (s *VectorStore) score(a, b []float32) float32 {
	switch s.distance {
	case vectorstore.Euclidean:
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return float32(1 / (1 + math.Sqrt(sum)))
	case vectorstore.DotProduct:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return float32(dot)
	default:
		return cosine(a, b)
	}
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func errCollectionMissing(name string) error {
	return fmt.Errorf("collection %q does not exist", name)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
