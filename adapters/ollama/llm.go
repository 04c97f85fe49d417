package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/finrag/llm"
)

var _ llm.Generator = (*LLMService)(nil)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3:8b-instruct-q8_0).
	Model string

	// Timeout bounds the wait for the first response byte, which covers
	// prompt processing on CPU-only hosts (default: 120s).
	Timeout time.Duration
}

// LLMService streams completions from /api/generate.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is one line of the /api/generate stream.
type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &LLMService{
		client:  &http.Client{Transport: transport},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// Model returns the model name requests are sent with.
func (s *LLMService) Model() string {
	return s.model
}

// Stream implements llm.Generator.
func (s *LLMService) Stream(ctx context.Context, prompt string, opts ...llm.Option) (<-chan llm.StreamResponse, error) {
	o := llm.ApplyOptions(opts...)

	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		System: o.SystemPrompt,
		Stream: true,
	}
	if o.MaxTokens > 0 || o.Temperature > 0 || o.TopP > 0 || len(o.Stop) > 0 {
		reqBody.Options = &options{
			NumPredict:  o.MaxTokens,
			Temperature: o.Temperature,
			TopP:        o.TopP,
			Stop:        o.Stop,
		}
	}

	resp, err := postJSON(ctx, s.client, s.baseURL+"/api/generate", reqBody)
	if err != nil {
		return nil, generateError("Stream", err)
	}

	responseChan := make(chan llm.StreamResponse)

	go func() {
		defer close(responseChan)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk generateResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				llm.Send(ctx, responseChan, llm.StreamResponse{
					Error: llm.NewLLMError("Stream", llm.ErrAPIError, "malformed stream line", err),
					Done:  true,
				})
				return
			}
			if chunk.Error != "" {
				llm.Send(ctx, responseChan, llm.StreamResponse{
					Error: llm.NewLLMError("Stream", llm.ErrAPIError, chunk.Error, nil),
					Done:  true,
				})
				return
			}

			if chunk.Response != "" {
				if !llm.Send(ctx, responseChan, llm.StreamResponse{Content: chunk.Response}) {
					return
				}
			}

			if chunk.Done {
				llm.Send(ctx, responseChan, llm.StreamResponse{
					Usage: &llm.Usage{
						PromptTokens:     chunk.PromptEvalCount,
						CompletionTokens: chunk.EvalCount,
						TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
					},
					Done: true,
				})
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		// a done line returns above, so reaching here means truncation
		var streamErr error = llm.NewLLMError("Stream", llm.ErrAPIError, "stream ended before done", nil)
		if err := scanner.Err(); err != nil {
			streamErr = generateError("Stream", err)
		}
		llm.Send(ctx, responseChan, llm.StreamResponse{Error: streamErr, Done: true})
	}()

	return responseChan, nil
}

// WarmUp triggers model loading by reading the first streamed fragment.
func (s *LLMService) WarmUp(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.Stream(ctx, "Hi", llm.WithMaxTokens(1))
	if err != nil {
		return err
	}
	if resp, ok := <-stream; ok && resp.Error != nil {
		return resp.Error
	}
	return nil
}

func generateError(op string, err error) error {
	var se *statusError
	if errors.As(err, &se) {
		return llm.ErrFromStatus(op, se.Status, se.Body)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return llm.NewLLMError(op, llm.ErrContextCanceled, "request canceled", err)
	}
	return llm.NewLLMError(op, llm.ErrModelNotAvailable, "ollama is not reachable", err)
}
