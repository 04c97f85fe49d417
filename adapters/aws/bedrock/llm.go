package bedrock

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Abraxas-365/finrag/llm"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/ptr"
)

type LLMModelID string

const (
	Claude3Haiku   LLMModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	Claude3Sonnet  LLMModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	Claude35Sonnet LLMModelID = "anthropic.claude-3-5-sonnet-20240620-v1:0"
)

const anthropicVersion = "bedrock-2023-05-31"

type BedrockLLM struct {
	client *bedrockruntime.Client
	model  LLMModelID
}

var _ llm.Generator = (*BedrockLLM)(nil)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Messages         []anthropicMessage `json:"messages"`
	System           string             `json:"system,omitempty"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float32            `json:"temperature,omitempty"`
	TopP             float32            `json:"top_p,omitempty"`
	StopSequences    []string           `json:"stop_sequences,omitempty"`
	AnthropicVersion string             `json:"anthropic_version"`
}

// streamEvent is one event of the Messages API stream.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Message struct {
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewBedrockLLM(client *bedrockruntime.Client, model LLMModelID) *BedrockLLM {
	if model == "" {
		model = Claude3Haiku
	}
	return &BedrockLLM{
		client: client,
		model:  model,
	}
}

func buildRequest(prompt string, options *llm.GenerateOptions) ([]byte, error) {
	maxTokens := options.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	return json.Marshal(anthropicRequest{
		Messages:         []anthropicMessage{{Role: llm.RoleUser, Content: prompt}},
		System:           options.SystemPrompt,
		MaxTokens:        maxTokens,
		Temperature:      options.Temperature,
		TopP:             options.TopP,
		StopSequences:    options.Stop,
		AnthropicVersion: anthropicVersion,
	})
}

func (b *BedrockLLM) Stream(ctx context.Context, prompt string, opts ...llm.Option) (<-chan llm.StreamResponse, error) {
	requestBody, err := buildRequest(prompt, llm.ApplyOptions(opts...))
	if err != nil {
		return nil, llm.NewLLMError("Stream", llm.ErrInternal, "failed to marshal request", err)
	}

	output, err := b.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     ptr.String(string(b.model)),
		Body:        requestBody,
		ContentType: ptr.String("application/json"),
	})
	if err != nil {
		return nil, handleBedrockError("Stream", err)
	}

	responseChan := make(chan llm.StreamResponse)

	go func() {
		defer close(responseChan)

		stream := output.GetStream()
		defer stream.Close()

		acc := &streamAccumulator{}
		for event := range stream.Events() {
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}

			resp, finished := acc.decode(chunk.Value.Bytes)
			if resp.Content != "" || resp.Done {
				if !llm.Send(ctx, responseChan, resp) {
					return
				}
			}
			if finished {
				return
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			llm.Send(ctx, responseChan, llm.StreamResponse{
				Error: handleBedrockError("Stream", err),
				Done:  true,
			})
		}
	}()

	return responseChan, nil
}

// streamAccumulator turns raw stream payloads into responses and keeps
// the token counts reported along the way.
type streamAccumulator struct {
	usage llm.Usage
}

func (a *streamAccumulator) decode(payload []byte) (llm.StreamResponse, bool) {
	var event streamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return llm.StreamResponse{
			Error: llm.NewLLMError("Stream", llm.ErrAPIError, "failed to unmarshal chunk", err),
			Done:  true,
		}, true
	}

	switch event.Type {
	case "message_start":
		a.usage.PromptTokens = event.Message.Usage.InputTokens
	case "content_block_delta":
		return llm.StreamResponse{Content: event.Delta.Text}, false
	case "message_delta":
		a.usage.CompletionTokens = event.Usage.OutputTokens
	case "message_stop":
		a.usage.TotalTokens = a.usage.PromptTokens + a.usage.CompletionTokens
		usage := a.usage
		return llm.StreamResponse{Usage: &usage, Done: true}, true
	case "error":
		return llm.StreamResponse{
			Error: llm.NewLLMError("Stream", llm.ErrAPIError, event.Error.Message, nil),
			Done:  true,
		}, true
	}

	return llm.StreamResponse{}, false
}

func handleBedrockError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return llm.NewLLMError(op, llm.ErrContextCanceled, "request canceled", err)
	}

	switch apiErrorCode(err) {
	case "ValidationException":
		return llm.NewLLMError(op, llm.ErrInvalidInput, "invalid request", err)
	case "ThrottlingException", "ServiceQuotaExceededException":
		return llm.NewLLMError(op, llm.ErrRateLimitExceeded, "rate limit exceeded", err)
	case "AccessDeniedException":
		return llm.NewLLMError(op, llm.ErrUnauthorized, "access denied", err)
	case "ResourceNotFoundException", "ModelNotReadyException":
		return llm.NewLLMError(op, llm.ErrModelNotAvailable, "model not available", err)
	}

	return llm.NewLLMError(op, llm.ErrAPIError, "Bedrock API error", err)
}
