package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Abraxas-365/finrag/embedding"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder embeds text through the OpenAI embeddings API or any
// server that speaks it (Ollama's /v1, vLLM, LM Studio).
type OpenAIEmbedder struct {
	client  *openai.Client
	options *embedding.EmbeddingOptions
}

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)

// DefaultOptions returns the default options for OpenAI embeddings
func DefaultOptions() *embedding.EmbeddingOptions {
	return &embedding.EmbeddingOptions{
		Model:     string(openai.SmallEmbedding3),
		Normalize: false,
	}
}

// NewOpenAIEmbedder creates a new OpenAI embedder with the given API key and options
func NewOpenAIEmbedder(apiKey string, opts ...embedding.Option) *OpenAIEmbedder {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	config := openai.DefaultConfig(apiKey)
	if options.BaseURL != "" {
		config.BaseURL = compatibleBaseURL(options.BaseURL)
	}
	if options.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: options.Timeout}
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(config),
		options: options,
	}
}

// Embed implements the Embedder interface
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyInput("Embed")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.options.Model),
	})
	if err != nil {
		return nil, e.handleError("Embed", err)
	}

	if len(resp.Data) == 0 {
		return nil, embedding.ErrEmptyResponse("Embed")
	}

	vector := resp.Data[0].Embedding
	if err := embedding.CheckVector("Embed", vector, e.options.Dimensions); err != nil {
		return nil, err
	}
	if e.options.Normalize {
		embedding.Normalize(vector)
	}

	return vector, nil
}

// handleError converts OpenAI API errors to embedding errors
func (e *OpenAIEmbedder) handleError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeContextCanceled,
			"embedding request canceled")
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return embedding.ErrFromStatus(op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return embedding.ErrFromStatus(op, reqErr.HTTPStatusCode, fmt.Sprint(reqErr.Err))
	}

	return embedding.NewEmbeddingError(op, err, embedding.ErrCodeInternal,
		"unexpected error")
}

// compatibleBaseURL appends /v1 to bare host URLs such as
// http://localhost:11434 so the client hits the OpenAI-compatible routes.
func compatibleBaseURL(url string) string {
	url = strings.TrimRight(url, "/")
	if strings.HasSuffix(url, "/v1") {
		return url
	}
	return url + "/v1"
}
