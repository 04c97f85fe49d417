package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Abraxas-365/finrag/embedding"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go/ptr"
)

type EmbeddingModelID string

const (
	TitanEmbedV1 EmbeddingModelID = "amazon.titan-embed-text-v1"
	TitanEmbedV2 EmbeddingModelID = "amazon.titan-embed-text-v2:0"
)

// TitanEmbedder embeds text with an Amazon Titan embedding model.
type TitanEmbedder struct {
	client  InvokeModelAPI
	model   EmbeddingModelID
	options *embedding.EmbeddingOptions
}

var _ embedding.Embedder = (*TitanEmbedder)(nil)

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize,omitempty"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

func NewTitanEmbedder(client InvokeModelAPI, opts ...embedding.Option) *TitanEmbedder {
	options := &embedding.EmbeddingOptions{
		Model:      string(TitanEmbedV2),
		Dimensions: 1024,
		Normalize:  true,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &TitanEmbedder{
		client:  client,
		model:   EmbeddingModelID(options.Model),
		options: options,
	}
}

func (e *TitanEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyInput("Embed")
	}

	req := titanRequest{InputText: text}
	if e.model != TitanEmbedV1 {
		// only v2 accepts dimensions and normalize
		req.Dimensions = e.options.Dimensions
		req.Normalize = e.options.Normalize
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, embedding.NewEmbeddingError("Embed", err, embedding.ErrCodeInternal,
			"failed to marshal request")
	}

	output, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     ptr.String(string(e.model)),
		Body:        body,
		ContentType: ptr.String("application/json"),
		Accept:      ptr.String("application/json"),
	})
	if err != nil {
		return nil, handleEmbeddingError("Embed", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, embedding.NewEmbeddingError("Embed", err, embedding.ErrCodeAPIError,
			"failed to unmarshal response")
	}

	if err := embedding.CheckVector("Embed", resp.Embedding, e.options.Dimensions); err != nil {
		return nil, err
	}
	if e.model == TitanEmbedV1 && e.options.Normalize {
		embedding.Normalize(resp.Embedding)
	}

	return resp.Embedding, nil
}

func handleEmbeddingError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeContextCanceled,
			"embedding request canceled")
	}

	switch apiErrorCode(err) {
	case "ValidationException":
		return embedding.ErrInvalidInput(op, err, "rejected by Bedrock")
	case "ThrottlingException", "ServiceQuotaExceededException":
		return embedding.ErrRateLimitExceeded(op, err)
	case "AccessDeniedException":
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeUnauthorized,
			"access to the embedding model denied")
	case "ResourceNotFoundException", "ModelNotReadyException":
		return embedding.ErrModelNotAvailable(op, err)
	default:
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeAPIError,
			"Bedrock API error")
	}
}
