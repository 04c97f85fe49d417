package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Abraxas-365/finrag/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig() *config.Config {
	cfg := config.Default()
	cfg.VectorStore.Provider = "memory"
	cfg.Catalog.Provider = "memory"
	cfg.Reranker.Provider = "none"
	cfg.LLM.Provider = "none"
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLogger(t *testing.T) {
	debug := newLogger(config.LogConfig{Level: "debug", Format: "json"})
	assert.True(t, debug.Enabled(context.Background(), slog.LevelDebug))

	warn := newLogger(config.LogConfig{Level: "warn", Format: "text"})
	assert.False(t, warn.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, warn.Enabled(context.Background(), slog.LevelWarn))

	fallback := newLogger(config.LogConfig{Level: "loud"})
	assert.True(t, fallback.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewApp_Local(t *testing.T) {
	a, err := newApp(context.Background(), localConfig(), testLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.kb.HasLLM())
	assert.NotNil(t, a.catalog)

	opts := a.kb.GetOptions()
	assert.Equal(t, "finance_docs", opts.Collection)
	assert.Nil(t, opts.Reranker)
	assert.Equal(t, 5, opts.TopN)
}

func TestNewApp_WithReranker(t *testing.T) {
	cfg := localConfig()
	cfg.Reranker.Provider = "tei"
	cfg.Catalog.Provider = "none"

	a, err := newApp(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.kb.GetOptions().Reranker)
	assert.Nil(t, a.catalog)
}

func TestNewApp_UnknownProvider(t *testing.T) {
	cfg := localConfig()
	cfg.Embedding.Provider = "cohere"

	_, err := newApp(context.Background(), cfg, testLogger())
	assert.ErrorContains(t, err, "cohere")
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.pdf", "notes.bin"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.txt"), []byte("x"), 0o600))

	a, err := newApp(context.Background(), localConfig(), testLogger())
	require.NoError(t, err)
	defer a.Close()

	got, err := a.expand(context.Background(), []string{dir, "https://example.com/report.html"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.pdf"),
		filepath.Join(dir, "b.txt"),
		"https://example.com/report.html",
	}, got)

	_, err = a.expand(context.Background(), []string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
