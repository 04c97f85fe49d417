// Package qdrant implements vectorstore.Store over Qdrant's REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/vectorstore"
)

const storeName = "qdrant"

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultTimeout = 15 * time.Second
)

// Payload keys shared with other tools reading the collection.
const (
	payloadText   = "text"
	payloadSource = "source"
	payloadPage   = "page"
)

type Config struct {
	URL      string
	APIKey   string
	Distance vectorstore.DistanceMetric
	Timeout  time.Duration
}

// Store is a minimal REST client to Qdrant.
type Store struct {
	url      string
	apiKey   string
	distance string
	client   *http.Client
}

var _ vectorstore.Store = (*Store)(nil)

func NewStore(cfg Config) *Store {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		url:      strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		distance: qdrantDistance(cfg.Distance),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func qdrantDistance(d vectorstore.DistanceMetric) string {
	switch d {
	case vectorstore.Euclidean:
		return "Euclid"
	case vectorstore.DotProduct:
		return "Dot"
	default:
		return "Cosine"
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// apiError is a non-2xx answer from Qdrant.
type apiError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed (status %d): %s", e.Method, e.Path, e.Status, e.Body)
}

func (s *Store) collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	status, err := s.do(ctx, http.MethodGet, s.collectionPath(name), nil, nil)
	if err == nil {
		return nil
	}
	if status != http.StatusNotFound {
		return vectorstore.NewInitFailedError(storeName, err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": s.distance,
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionPath(name), body, nil); err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, name string, chunks []document.Chunk) error {
	points := make([]point, len(chunks))
	for i, c := range chunks {
		payload := make(map[string]any, len(c.Metadata)+3)
		for k, v := range c.Metadata {
			payload[k] = v
		}
		payload[payloadText] = c.Text
		payload[payloadSource] = c.Source
		payload[payloadPage] = c.PageNumber

		points[i] = point{ID: c.ID, Vector: c.Vector, Payload: payload}
	}

	body := map[string]any{"points": points}
	if _, err := s.do(ctx, http.MethodPut, s.collectionPath(name)+"/points?wait=true", body, nil); err != nil {
		return vectorstore.NewAddFailedError(storeName, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int) ([]vectorstore.SearchResult, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}

	status, err := s.do(ctx, http.MethodPost, s.collectionPath(name)+"/points/search", req, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}

	results := make([]vectorstore.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, toResult(r))
	}
	return results, nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	status, err := s.do(ctx, http.MethodDelete, s.collectionPath(name), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return vectorstore.NewDeleteFailedError(storeName, err)
	}
	return nil
}

func toResult(r scoredPoint) vectorstore.SearchResult {
	res := vectorstore.SearchResult{
		ID:       fmt.Sprint(r.ID),
		Score:    r.Score,
		Metadata: make(map[string]any),
	}
	for k, v := range r.Payload {
		switch k {
		case payloadText:
			res.Text, _ = v.(string)
		case payloadSource:
			res.Source, _ = v.(string)
		case payloadPage:
			if n, ok := v.(float64); ok {
				res.PageNumber = int(n)
			}
		default:
			res.Metadata[k] = v
		}
	}
	return res
}

// do sends a JSON request and decodes the answer into out. It returns
// the HTTP status (zero when the request never completed).
func (s *Store) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &apiError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
