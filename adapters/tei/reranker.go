// Package tei talks to a Text Embeddings Inference server's /rerank endpoint.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/finrag/rerank"
	"github.com/Abraxas-365/finrag/vectorstore"
)

const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Reranker struct {
	baseURL string
	client  *http.Client
}

var _ rerank.Reranker = (*Reranker)(nil)

func NewReranker(cfg Config) *Reranker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Reranker{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (r *Reranker) Rerank(ctx context.Context, query string, candidates []vectorstore.SearchResult, topN int) ([]vectorstore.SearchResult, error) {
	if len(candidates) == 0 {
		return []vectorstore.SearchResult{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	items, err := r.post(ctx, "Rerank", rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, err
	}

	scores := make([]rerank.Scored, len(items))
	for i, it := range items {
		scores[i] = rerank.Scored{Index: it.Index, Score: float32(it.Score)}
	}
	return rerank.Apply(candidates, scores, topN), nil
}

// WarmUp sends a one-text request so the server loads its model.
func (r *Reranker) WarmUp(ctx context.Context) error {
	_, err := r.post(ctx, "WarmUp", rerankRequest{Query: "warmup", Texts: []string{"warmup"}})
	return err
}

func (r *Reranker) post(ctx context.Context, op string, payload rerankRequest) ([]rerankItem, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, rerank.NewRerankError(op, rerank.ErrCodeAPIError, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, rerank.NewRerankError(op, rerank.ErrCodeAPIError, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, rerank.NewRerankError(op, rerank.ErrCodeUnavailable, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, rerank.ErrFromStatus(op, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var items []rerankItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, rerank.NewRerankError(op, rerank.ErrCodeInvalidResponse, "failed to decode response", err)
	}
	if items == nil {
		return nil, rerank.NewRerankError(op, rerank.ErrCodeInvalidResponse, "null response", fmt.Errorf("empty body"))
	}
	return items, nil
}
