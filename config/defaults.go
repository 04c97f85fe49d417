package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Ollama: OllamaConfig{BaseURL: "http://localhost:11434"},
		AWS:    AWSConfig{Region: "us-east-1"},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			Timeout:    30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:     "ollama",
			Model:        "llama3:8b-instruct-q8_0",
			ResolveModel: true,
			Timeout:      120 * time.Second,
			MaxTokens:    1024,
			Temperature:  0.1,
		},
		VectorStore: VectorStoreConfig{
			Provider:   "qdrant",
			Collection: "finance_docs",
			Distance:   "cosine",
			Qdrant:     QdrantConfig{URL: "http://localhost:6333", Timeout: 15 * time.Second},
			PGVector:   PGVectorConfig{TablePrefix: "finrag_"},
			Weaviate:   WeaviateConfig{Host: "http://localhost:8081"},
		},
		Reranker: RerankerConfig{
			Provider: "tei",
			BaseURL:  "http://localhost:8080",
			Timeout:  30 * time.Second,
		},
		Catalog: CatalogConfig{Provider: "memory"},
		Chunking: ChunkingConfig{
			WindowSize:    500,
			Overlap:       100,
			Tokenizer:     "estimate",
			TiktokenModel: "gpt-4",
		},
		Retrieval: RetrievalConfig{
			CandidateLimit:  10,
			TopN:            5,
			MaxContextChars: 6000,
		},
		Prompt: PromptConfig{Dir: "prompts", Name: "financial_analysis"},
		Loader: LoaderConfig{
			MaxBytes:    100 << 20,
			PDFToText:   "pdftotext",
			HTTPTimeout: 30 * time.Second,
		},
	}
}

// setDefaults registers every key so environment variables can override
// keys that no config file mentions.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("ollama.base_url", d.Ollama.BaseURL)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("aws.region", d.AWS.Region)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.resolve_model", d.LLM.ResolveModel)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.system_prompt", "")

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)
	v.SetDefault("vector_store.distance", d.VectorStore.Distance)
	v.SetDefault("vector_store.score_threshold", d.VectorStore.ScoreThreshold)
	v.SetDefault("vector_store.qdrant.url", d.VectorStore.Qdrant.URL)
	v.SetDefault("vector_store.qdrant.api_key", "")
	v.SetDefault("vector_store.qdrant.timeout", d.VectorStore.Qdrant.Timeout)
	v.SetDefault("vector_store.pgvector.dsn", "")
	v.SetDefault("vector_store.pgvector.table_prefix", d.VectorStore.PGVector.TablePrefix)
	v.SetDefault("vector_store.weaviate.host", d.VectorStore.Weaviate.Host)
	v.SetDefault("vector_store.weaviate.api_key", "")

	v.SetDefault("reranker.provider", d.Reranker.Provider)
	v.SetDefault("reranker.base_url", d.Reranker.BaseURL)
	v.SetDefault("reranker.timeout", d.Reranker.Timeout)

	v.SetDefault("catalog.provider", d.Catalog.Provider)
	v.SetDefault("catalog.dsn", "")

	v.SetDefault("chunking.window_size", d.Chunking.WindowSize)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)
	v.SetDefault("chunking.tokenizer", d.Chunking.Tokenizer)
	v.SetDefault("chunking.tiktoken_model", d.Chunking.TiktokenModel)

	v.SetDefault("retrieval.candidate_limit", d.Retrieval.CandidateLimit)
	v.SetDefault("retrieval.top_n", d.Retrieval.TopN)
	v.SetDefault("retrieval.max_context_chars", d.Retrieval.MaxContextChars)

	v.SetDefault("prompt.dir", d.Prompt.Dir)
	v.SetDefault("prompt.name", d.Prompt.Name)

	v.SetDefault("loader.recursive", d.Loader.Recursive)
	v.SetDefault("loader.max_bytes", d.Loader.MaxBytes)
	v.SetDefault("loader.pdftotext", d.Loader.PDFToText)
	v.SetDefault("loader.http_timeout", d.Loader.HTTPTimeout)
}
