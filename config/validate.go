package config

import (
	"errors"
	"fmt"
	"slices"
)

// Error reports one invalid setting.
type Error struct {
	Key     string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Message)
}

var (
	logLevels          = []string{"debug", "info", "warn", "error"}
	logFormats         = []string{"text", "json"}
	embeddingProviders = []string{"ollama", "openai", "bedrock"}
	llmProviders       = []string{"ollama", "openai", "bedrock", "none"}
	storeProviders     = []string{"qdrant", "pgvector", "weaviate", "memory"}
	distances          = []string{"cosine", "euclidean", "dot_product"}
	rerankerProviders  = []string{"tei", "none"}
	catalogProviders   = []string{"memory", "postgres", "none"}
	tokenizers         = []string{"estimate", "tiktoken"}
)

// Validate checks backend names and numeric ranges. All problems are
// returned together.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(key, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, &Error{Key: key, Message: fmt.Sprintf("%q is not one of %v", value, allowed)})
		}
	}
	positive := func(key string, value int) {
		if value <= 0 {
			errs = append(errs, &Error{Key: key, Message: fmt.Sprintf("must be positive, got %d", value)})
		}
	}
	required := func(key, value string) {
		if value == "" {
			errs = append(errs, &Error{Key: key, Message: "is required"})
		}
	}

	oneOf("log.level", c.Log.Level, logLevels)
	oneOf("log.format", c.Log.Format, logFormats)
	oneOf("embedding.provider", c.Embedding.Provider, embeddingProviders)
	oneOf("llm.provider", c.LLM.Provider, llmProviders)
	oneOf("vector_store.provider", c.VectorStore.Provider, storeProviders)
	oneOf("vector_store.distance", c.VectorStore.Distance, distances)
	oneOf("reranker.provider", c.Reranker.Provider, rerankerProviders)
	oneOf("catalog.provider", c.Catalog.Provider, catalogProviders)
	oneOf("chunking.tokenizer", c.Chunking.Tokenizer, tokenizers)

	positive("embedding.dimensions", c.Embedding.Dimensions)
	positive("chunking.window_size", c.Chunking.WindowSize)
	positive("retrieval.candidate_limit", c.Retrieval.CandidateLimit)
	positive("retrieval.top_n", c.Retrieval.TopN)
	positive("retrieval.max_context_chars", c.Retrieval.MaxContextChars)

	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.WindowSize {
		errs = append(errs, &Error{Key: "chunking.overlap",
			Message: fmt.Sprintf("must be in [0, window_size), got %d", c.Chunking.Overlap)})
	}
	if c.Retrieval.TopN > c.Retrieval.CandidateLimit {
		errs = append(errs, &Error{Key: "retrieval.top_n",
			Message: fmt.Sprintf("%d exceeds candidate_limit %d", c.Retrieval.TopN, c.Retrieval.CandidateLimit)})
	}
	if c.Loader.MaxBytes <= 0 {
		errs = append(errs, &Error{Key: "loader.max_bytes", Message: "must be positive"})
	}

	required("vector_store.collection", c.VectorStore.Collection)
	required("embedding.model", c.Embedding.Model)
	if c.VectorStore.Provider == "pgvector" {
		required("vector_store.pgvector.dsn", c.VectorStore.PGVector.DSN)
	}
	if c.Catalog.Provider == "postgres" {
		required("catalog.dsn", c.Catalog.DSN)
	}
	if c.Embedding.Provider == "openai" || c.LLM.Provider == "openai" {
		// local OpenAI-compatible servers need no key
		if c.OpenAI.BaseURL == "" {
			required("openai.api_key", c.OpenAI.APIKey)
		}
	}

	return errors.Join(errs...)
}
