package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/finrag/embedding"
)

var _ embedding.Embedder = (*Embedder)(nil)

// EmbedderConfig holds configuration for the Ollama embedder.
type EmbedderConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model (default: nomic-embed-text).
	Model string

	// Dimensions is the expected vector length; zero disables the check.
	Dimensions int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Embedder calls Ollama's /api/embeddings endpoint.
type Embedder struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewEmbedder(cfg EmbedderConfig) *Embedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultEmbeddingTimeout
	}

	return &Embedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyInput("Embed")
	}

	resp, err := postJSON(ctx, e.client, e.baseURL+"/api/embeddings", embeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, embedError("Embed", err)
	}
	defer resp.Body.Close()

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, embedding.NewEmbeddingError("Embed", err, embedding.ErrCodeAPIError,
			"malformed embedding response")
	}

	if err := embedding.CheckVector("Embed", out.Embedding, e.dimensions); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

// WarmUp loads the embedding model into memory.
func (e *Embedder) WarmUp(ctx context.Context) error {
	_, err := e.Embed(ctx, "warmup")
	return err
}

func embedError(op string, err error) error {
	var se *statusError
	if errors.As(err, &se) {
		return embedding.ErrFromStatus(op, se.Status, se.Body)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeContextCanceled,
			"embedding request canceled")
	}
	return embedding.NewEmbeddingError(op, err, embedding.ErrCodeModelNotAvailable,
		"ollama is not reachable")
}
