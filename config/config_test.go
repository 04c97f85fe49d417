package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3:8b-instruct-q8_0", cfg.LLM.Model)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "http://localhost:8080", cfg.Reranker.BaseURL)
	assert.Equal(t, "finance_docs", cfg.VectorStore.Collection)
	assert.Equal(t, 500, cfg.Chunking.WindowSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 10, cfg.Retrieval.CandidateLimit)
	assert.Equal(t, 5, cfg.Retrieval.TopN)
	assert.Equal(t, 6000, cfg.Retrieval.MaxContextChars)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  format: json
vector_store:
  provider: pgvector
  collection: filings
  pgvector:
    dsn: postgres://localhost/finrag
retrieval:
  candidate_limit: 20
  top_n: 8
llm:
  timeout: 45s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "pgvector", cfg.VectorStore.Provider)
	assert.Equal(t, "filings", cfg.VectorStore.Collection)
	assert.Equal(t, "postgres://localhost/finrag", cfg.VectorStore.PGVector.DSN)
	assert.Equal(t, "finrag_", cfg.VectorStore.PGVector.TablePrefix)
	assert.Equal(t, 20, cfg.Retrieval.CandidateLimit)
	assert.Equal(t, 8, cfg.Retrieval.TopN)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
vector_store:
  provider: weaviate
`)
	t.Setenv("FINRAG_VECTOR_STORE_PROVIDER", "memory")
	t.Setenv("FINRAG_RETRIEVAL_TOP_N", "3")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.VectorStore.Provider)
	assert.Equal(t, 3, cfg.Retrieval.TopN)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: cohere
`)
	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "embedding.provider", cfgErr.Key)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		keys   []string
	}{
		{"defaults", func(*Config) {}, nil},
		{"unknown store", func(c *Config) { c.VectorStore.Provider = "milvus" }, []string{"vector_store.provider"}},
		{"unknown distance", func(c *Config) { c.VectorStore.Distance = "manhattan" }, []string{"vector_store.distance"}},
		{"overlap too large", func(c *Config) { c.Chunking.Overlap = 500 }, []string{"chunking.overlap"}},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, []string{"chunking.overlap"}},
		{"top-n above candidates", func(c *Config) { c.Retrieval.TopN = 11 }, []string{"retrieval.top_n"}},
		{"zero budget", func(c *Config) { c.Retrieval.MaxContextChars = 0 }, []string{"retrieval.max_context_chars"}},
		{"pgvector without dsn", func(c *Config) { c.VectorStore.Provider = "pgvector" }, []string{"vector_store.pgvector.dsn"}},
		{"postgres catalog without dsn", func(c *Config) { c.Catalog.Provider = "postgres" }, []string{"catalog.dsn"}},
		{"openai without key", func(c *Config) { c.LLM.Provider = "openai" }, []string{"openai.api_key"}},
		{"openai-compatible server", func(c *Config) {
			c.LLM.Provider = "openai"
			c.OpenAI.BaseURL = "http://localhost:11434/v1"
		}, nil},
		{"several problems", func(c *Config) {
			c.Log.Level = "trace"
			c.Chunking.Tokenizer = "sentencepiece"
		}, []string{"log.level", "chunking.tokenizer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if len(tt.keys) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			for _, key := range tt.keys {
				assert.Contains(t, err.Error(), "config "+key+":")
			}
		})
	}
}
