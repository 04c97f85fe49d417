package rerank

import (
	"context"
	"sort"

	"github.com/Abraxas-365/finrag/vectorstore"
)

// Reranker reorders retrieval candidates by relevance to the query.
type Reranker interface {
	// Rerank returns at most topN candidates in descending relevance order,
	// with Score replaced by the reranker's score. Empty candidates return
	// an empty result.
	Rerank(ctx context.Context, query string, candidates []vectorstore.SearchResult, topN int) ([]vectorstore.SearchResult, error)
}

// Scored is a relevance score for the candidate at Index.
type Scored struct {
	Index int
	Score float32
}

// Apply maps scores back onto candidates, drops out-of-range indices, sorts
// by descending score and keeps topN.
func Apply(candidates []vectorstore.SearchResult, scores []Scored, topN int) []vectorstore.SearchResult {
	results := make([]vectorstore.SearchResult, 0, len(scores))
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(candidates) {
			continue
		}
		r := candidates[s.Index]
		r.Score = s.Score
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topN >= 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}
