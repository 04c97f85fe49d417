// Package ollama provides embedding and generation adapters for a local
// Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL          = "http://localhost:11434"
	DefaultEmbeddingModel   = "nomic-embed-text"
	DefaultLLMModel         = "llama3:8b-instruct-q8_0"
	DefaultEmbeddingTimeout = 30 * time.Second
	DefaultLLMTimeout       = 120 * time.Second
)

// statusError carries a non-2xx response from Ollama.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama error (status %d): %s", e.Status, e.Body)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return resp, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of the models installed on the server.
func ListModels(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

// ResolveModel picks the installed model to use for requested: an exact
// match, then a prefix match ("llama3" → "llama3:latest"), then the first
// instruct or chat model, then the first model. When discovery fails or
// nothing is installed the requested name is returned unchanged together
// with the discovery error, if any.
func ResolveModel(ctx context.Context, client *http.Client, baseURL, requested string) (string, error) {
	models, err := ListModels(ctx, client, baseURL)
	if err != nil {
		return requested, err
	}
	return pickModel(models, requested), nil
}

func pickModel(models []string, requested string) string {
	if len(models) == 0 {
		return requested
	}

	for _, m := range models {
		if m == requested {
			return m
		}
	}

	lower := strings.ToLower(requested)
	for _, m := range models {
		if strings.HasPrefix(strings.ToLower(m), lower) {
			return m
		}
	}

	for _, m := range models {
		name := strings.ToLower(m)
		if strings.Contains(name, "instruct") || strings.Contains(name, "chat") {
			return m
		}
	}

	return models[0]
}
