// Package config loads finrag settings from a YAML file, a .env file and
// FINRAG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override. Nested keys use
// underscores: FINRAG_VECTOR_STORE_PROVIDER sets vector_store.provider.
const EnvPrefix = "FINRAG"

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Ollama      OllamaConfig      `mapstructure:"ollama"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	AWS         AWSConfig         `mapstructure:"aws"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	LLM         LLMConfig         `mapstructure:"llm"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	Reranker    RerankerConfig    `mapstructure:"reranker"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Chunking    ChunkingConfig    `mapstructure:"chunking"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Prompt      PromptConfig      `mapstructure:"prompt"`
	Loader      LoaderConfig      `mapstructure:"loader"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"` // ollama, openai, bedrock
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // ollama, openai, bedrock, none
	Model        string        `mapstructure:"model"`
	ResolveModel bool          `mapstructure:"resolve_model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

type VectorStoreConfig struct {
	Provider       string         `mapstructure:"provider"` // qdrant, pgvector, weaviate, memory
	Collection     string         `mapstructure:"collection"`
	Distance       string         `mapstructure:"distance"`
	ScoreThreshold float32        `mapstructure:"score_threshold"`
	Qdrant         QdrantConfig   `mapstructure:"qdrant"`
	PGVector       PGVectorConfig `mapstructure:"pgvector"`
	Weaviate       WeaviateConfig `mapstructure:"weaviate"`
}

type QdrantConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PGVectorConfig struct {
	DSN         string `mapstructure:"dsn"`
	TablePrefix string `mapstructure:"table_prefix"`
}

type WeaviateConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"api_key"`
}

type RerankerConfig struct {
	Provider string        `mapstructure:"provider"` // tei or none
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CatalogConfig struct {
	Provider string `mapstructure:"provider"` // memory, postgres, none
	DSN      string `mapstructure:"dsn"`
}

type ChunkingConfig struct {
	WindowSize    int    `mapstructure:"window_size"`
	Overlap       int    `mapstructure:"overlap"`
	Tokenizer     string `mapstructure:"tokenizer"` // estimate or tiktoken
	TiktokenModel string `mapstructure:"tiktoken_model"`
}

type RetrievalConfig struct {
	CandidateLimit  int `mapstructure:"candidate_limit"`
	TopN            int `mapstructure:"top_n"`
	MaxContextChars int `mapstructure:"max_context_chars"`
}

type PromptConfig struct {
	Dir  string `mapstructure:"dir"`
	Name string `mapstructure:"name"`
}

type LoaderConfig struct {
	Recursive   bool          `mapstructure:"recursive"`
	MaxBytes    int64         `mapstructure:"max_bytes"`
	PDFToText   string        `mapstructure:"pdftotext"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// Load reads configuration. An empty path looks for finrag.yaml in the
// working directory and tolerates its absence; an explicit path must
// exist. Values in .env are exported before environment overrides apply.
func Load(path string) (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("finrag")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
