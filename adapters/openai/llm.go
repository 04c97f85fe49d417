package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Abraxas-365/finrag/llm"
	"github.com/sashabaranov/go-openai"
)

type OpenAILLM struct {
	client *openai.Client
	model  string
}

var _ llm.Generator = (*OpenAILLM)(nil)

// LLMConfig configures an OpenAI or OpenAI-compatible chat endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewOpenAILLM(cfg LLMConfig) *OpenAILLM {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = compatibleBaseURL(cfg.BaseURL)
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAILLM{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

func (o *OpenAILLM) request(prompt string, options *llm.GenerateOptions) openai.ChatCompletionRequest {
	messages := llm.PromptMessages(prompt, options)
	openAIMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openAIMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    openAIMessages,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}
}

func (o *OpenAILLM) Stream(ctx context.Context, prompt string, opts ...llm.Option) (<-chan llm.StreamResponse, error) {
	options := llm.ApplyOptions(opts...)
	req := o.request(prompt, options)
	req.Stream = true

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, handleOpenAIError("Stream", err)
	}

	responseChan := make(chan llm.StreamResponse)

	go func() {
		defer close(responseChan)
		defer stream.Close()

		usage := &llm.Usage{PromptTokens: llm.EstimateTokens(prompt)}
		usage.TotalTokens = usage.PromptTokens

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				llm.Send(ctx, responseChan, llm.StreamResponse{Usage: usage, Done: true})
				return
			}
			if err != nil {
				llm.Send(ctx, responseChan, llm.StreamResponse{
					Error: handleOpenAIError("Stream", err),
					Done:  true,
				})
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			choice := response.Choices[0]
			if choice.Delta.Content != "" {
				usage.CompletionTokens += llm.EstimateTokens(choice.Delta.Content)
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

				if !llm.Send(ctx, responseChan, llm.StreamResponse{Content: choice.Delta.Content}) {
					return
				}
			}

			if choice.FinishReason == openai.FinishReasonStop || choice.FinishReason == openai.FinishReasonLength {
				llm.Send(ctx, responseChan, llm.StreamResponse{Usage: usage, Done: true})
				return
			}
		}
	}()

	return responseChan, nil
}

// WarmUp sends a one-token request so the server loads the model.
func (o *OpenAILLM) WarmUp(ctx context.Context) error {
	req := o.request("Hi", llm.ApplyOptions(llm.WithMaxTokens(1)))
	if _, err := o.client.CreateChatCompletion(ctx, req); err != nil {
		return handleOpenAIError("WarmUp", err)
	}
	return nil
}

func handleOpenAIError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return llm.NewLLMError(op, llm.ErrContextCanceled, "request canceled", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.ErrFromStatus(op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.ErrFromStatus(op, reqErr.HTTPStatusCode, fmt.Sprint(reqErr.Err))
	}

	return llm.NewLLMError(op, llm.ErrInternal, "unexpected error", err)
}
