package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Abraxas-365/finrag/adapters/aws/bedrock"
	"github.com/Abraxas-365/finrag/adapters/aws/s3/s3source"
	"github.com/Abraxas-365/finrag/adapters/fs"
	"github.com/Abraxas-365/finrag/adapters/inmemory"
	"github.com/Abraxas-365/finrag/adapters/ollama"
	"github.com/Abraxas-365/finrag/adapters/openai"
	"github.com/Abraxas-365/finrag/adapters/pgvectore"
	"github.com/Abraxas-365/finrag/adapters/postgres"
	"github.com/Abraxas-365/finrag/adapters/qdrant"
	"github.com/Abraxas-365/finrag/adapters/tei"
	"github.com/Abraxas-365/finrag/adapters/weaviate"
	"github.com/Abraxas-365/finrag/adapters/web/websource"
	"github.com/Abraxas-365/finrag/catalog"
	"github.com/Abraxas-365/finrag/config"
	"github.com/Abraxas-365/finrag/datasource"
	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/embedding"
	"github.com/Abraxas-365/finrag/kb"
	"github.com/Abraxas-365/finrag/llm"
	"github.com/Abraxas-365/finrag/prompt"
	"github.com/Abraxas-365/finrag/vectorstore"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// app holds the wired knowledge base and the pieces commands use directly.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	kb      *kb.KnowledgeBase
	catalog *catalog.Catalog
	files   *fs.Loader
	objects *s3source.S3Source
	closers []func()
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	tokenizer, err := a.tokenizer()
	if err != nil {
		return err
	}
	splitter, err := document.NewRecursiveSplitter(
		document.WithWindowSize(cfg.Chunking.WindowSize),
		document.WithOverlap(cfg.Chunking.Overlap),
		document.WithTokenizer(tokenizer),
	)
	if err != nil {
		return err
	}

	embedder, err := a.embedder(awsCfg)
	if err != nil {
		return err
	}

	store, err := a.vectorStore(ctx)
	if err != nil {
		return err
	}
	vStore := vectorstore.New(store, embedder,
		vectorstore.WithDimensions(cfg.Embedding.Dimensions),
		vectorstore.WithScoreThreshold(cfg.VectorStore.ScoreThreshold),
	)

	if err := a.wireCatalog(ctx); err != nil {
		return err
	}

	loadOpts := []datasource.Option{
		datasource.WithRecursive(cfg.Loader.Recursive),
		datasource.WithMaxBytes(cfg.Loader.MaxBytes),
		datasource.WithPDFToText(cfg.Loader.PDFToText),
	}
	a.files = fs.NewLoader(loadOpts...)
	a.objects = s3source.NewS3Source(s3.NewFromConfig(awsCfg), loadOpts...)
	router := datasource.NewRouter().
		Register(a.files, "file").
		Register(a.objects, "s3").
		Register(websource.NewWebSource(cfg.Loader.HTTPTimeout, loadOpts...), "http", "https")

	opts := []kb.Option{
		kb.WithCollection(cfg.VectorStore.Collection),
		kb.WithCandidateLimit(cfg.Retrieval.CandidateLimit),
		kb.WithTopN(cfg.Retrieval.TopN),
		kb.WithMaxContextChars(cfg.Retrieval.MaxContextChars),
		kb.WithPrompts(prompt.NewFileStore(cfg.Prompt.Dir, a.logger), cfg.Prompt.Name),
		kb.WithTokenizer(tokenizer),
		kb.WithLogger(a.logger),
	}
	if a.catalog != nil {
		opts = append(opts, kb.WithCatalog(a.catalog))
	}
	if cfg.Reranker.Provider == "tei" {
		opts = append(opts, kb.WithReranker(tei.NewReranker(tei.Config{
			BaseURL: cfg.Reranker.BaseURL,
			Timeout: cfg.Reranker.Timeout,
		})))
	}

	generator, err := a.generator(ctx, awsCfg)
	if err != nil {
		return err
	}
	if generator != nil {
		genOpts := []llm.Option{
			llm.WithMaxTokens(cfg.LLM.MaxTokens),
			llm.WithTemperature(cfg.LLM.Temperature),
		}
		if cfg.LLM.SystemPrompt != "" {
			genOpts = append(genOpts, llm.WithSystemPrompt(cfg.LLM.SystemPrompt))
		}
		opts = append(opts, kb.WithLLM(generator, genOpts...))
	}

	a.kb, err = kb.New(router, splitter, embedder, vStore, opts...)
	return err
}

func (a *app) tokenizer() (document.Tokenizer, error) {
	if a.cfg.Chunking.Tokenizer != "tiktoken" {
		return document.EstimateTokenizer{}, nil
	}
	return document.NewTiktokenTokenizer(a.cfg.Chunking.TiktokenModel)
}

func (a *app) embedder(awsCfg aws.Config) (embedding.Embedder, error) {
	cfg := a.cfg.Embedding

	switch cfg.Provider {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    a.cfg.Ollama.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		}), nil
	case "openai":
		return openai.NewOpenAIEmbedder(a.cfg.OpenAI.APIKey,
			embedding.WithModel(cfg.Model),
			embedding.WithBaseURL(a.cfg.OpenAI.BaseURL),
			embedding.WithDimensions(cfg.Dimensions),
			embedding.WithTimeout(cfg.Timeout),
		), nil
	case "bedrock":
		return bedrock.NewTitanEmbedder(bedrockruntime.NewFromConfig(awsCfg),
			embedding.WithModel(cfg.Model),
			embedding.WithDimensions(cfg.Dimensions),
			embedding.WithNormalization(true),
		), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func (a *app) vectorStore(ctx context.Context) (vectorstore.Store, error) {
	cfg := a.cfg.VectorStore
	distance := vectorstore.DistanceMetric(cfg.Distance)

	switch cfg.Provider {
	case "qdrant":
		return qdrant.NewStore(qdrant.Config{
			URL:      cfg.Qdrant.URL,
			APIKey:   cfg.Qdrant.APIKey,
			Distance: distance,
			Timeout:  cfg.Qdrant.Timeout,
		}), nil
	case "pgvector":
		store, err := pgvectore.NewPGVectorStore(ctx, cfg.PGVector.DSN, pgvectore.Options{
			TablePrefix: cfg.PGVector.TablePrefix,
			Distance:    distance,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "weaviate":
		return weaviate.NewStore(weaviate.Config{Host: cfg.Weaviate.Host, APIKey: cfg.Weaviate.APIKey})
	case "memory":
		a.logger.Warn("in-memory vector store does not persist between runs")
		return inmemory.NewVectorStore(distance), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider %q", cfg.Provider)
	}
}

func (a *app) wireCatalog(ctx context.Context) error {
	switch a.cfg.Catalog.Provider {
	case "memory":
		a.catalog = catalog.New(inmemory.NewCatalogRepository())
	case "postgres":
		db, err := postgres.Open(ctx, a.cfg.Catalog.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { db.Close() })

		repo, err := postgres.NewCatalogRepository(db)
		if err != nil {
			return err
		}
		if err := repo.InitSchema(ctx); err != nil {
			return fmt.Errorf("init catalog schema: %w", err)
		}
		a.catalog = catalog.New(repo)
	}
	return nil
}

func (a *app) generator(ctx context.Context, awsCfg aws.Config) (llm.Generator, error) {
	cfg := a.cfg.LLM

	switch cfg.Provider {
	case "none":
		return nil, nil
	case "ollama":
		model := cfg.Model
		if cfg.ResolveModel {
			resolved, err := ollama.ResolveModel(ctx, &http.Client{Timeout: 5 * time.Second}, a.cfg.Ollama.BaseURL, model)
			if err != nil {
				a.logger.Warn("ollama model discovery failed", "model", model, "error", err)
			} else if resolved != model {
				a.logger.Info("using installed ollama model", "requested", model, "model", resolved)
			}
			model = resolved
		}
		return ollama.NewLLMService(ollama.LLMConfig{
			BaseURL: a.cfg.Ollama.BaseURL,
			Model:   model,
			Timeout: cfg.Timeout,
		}), nil
	case "openai":
		return openai.NewOpenAILLM(openai.LLMConfig{
			APIKey:  a.cfg.OpenAI.APIKey,
			BaseURL: a.cfg.OpenAI.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case "bedrock":
		return bedrock.NewBedrockLLM(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMModelID(cfg.Model)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// expand turns command arguments into loadable sources: directories become
// their files and s3 prefixes (keys that are empty or end in "/") become
// the objects under them.
func (a *app) expand(ctx context.Context, args []string) ([]string, error) {
	var sources []string
	for _, arg := range args {
		switch datasource.Scheme(arg) {
		case "file":
			files, err := a.files.Expand(strings.TrimPrefix(arg, "file://"))
			if err != nil {
				return nil, err
			}
			sources = append(sources, files...)
		case "s3":
			bucket, key, err := s3source.ParseURI(arg)
			if err != nil {
				return nil, err
			}
			if key != "" && !strings.HasSuffix(key, "/") {
				sources = append(sources, arg)
				continue
			}
			uris, err := a.objects.List(ctx, bucket, key)
			if err != nil {
				return nil, err
			}
			sources = append(sources, uris...)
		default:
			sources = append(sources, arg)
		}
	}
	return sources, nil
}
