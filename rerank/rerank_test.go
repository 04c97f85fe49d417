package rerank

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Abraxas-365/finrag/vectorstore"
	"github.com/stretchr/testify/assert"
)

func candidates(texts ...string) []vectorstore.SearchResult {
	out := make([]vectorstore.SearchResult, len(texts))
	for i, t := range texts {
		out[i] = vectorstore.SearchResult{ID: t, Text: t, Score: 0.5}
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		scores []Scored
		topN   int
		want   []string
	}{
		{
			name:   "sorts descending",
			scores: []Scored{{Index: 0, Score: 0.1}, {Index: 1, Score: 0.9}, {Index: 2, Score: 0.5}},
			topN:   5,
			want:   []string{"b", "c", "a"},
		},
		{
			name:   "keeps topN",
			scores: []Scored{{Index: 0, Score: 0.1}, {Index: 1, Score: 0.9}, {Index: 2, Score: 0.5}},
			topN:   2,
			want:   []string{"b", "c"},
		},
		{
			name:   "ignores out of range indices",
			scores: []Scored{{Index: 7, Score: 1}, {Index: -1, Score: 1}, {Index: 2, Score: 0.3}},
			topN:   5,
			want:   []string{"c"},
		},
		{
			name: "no scores",
			topN: 5,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(candidates("a", "b", "c"), tt.scores, tt.topN)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestApplyReplacesScore(t *testing.T) {
	got := Apply(candidates("a"), []Scored{{Index: 0, Score: 0.42}}, 1)
	assert.Equal(t, float32(0.42), got[0].Score)
}

func TestErrFromStatus(t *testing.T) {
	var rerr *RerankError
	err := ErrFromStatus("Rerank", http.StatusRequestEntityTooLarge, "too big")
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, ErrCodeRequestTooLarge, rerr.Code)

	err = ErrFromStatus("Rerank", http.StatusBadGateway, "")
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, ErrCodeUnavailable, rerr.Code)
}
