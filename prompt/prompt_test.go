package prompt

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseAndRender(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"dot placeholders", "C={{.Context}} Q={{.Question}}", "C=ctx Q=why?"},
		{"dollar placeholders", "C={{$Context}} Q={{ $Question }}", "C=ctx Q=why?"},
		{"no placeholders", "static", "static"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse("t", tt.text)
			require.NoError(t, err)

			got, err := tmpl.Render(Data{Context: "ctx", Question: "why?"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("bad", "{{.Context")
	assert.Error(t, err)
}

func TestRenderUnknownField(t *testing.T) {
	tmpl, err := Parse("t", "{{.Missing}}")
	require.NoError(t, err)

	_, err = tmpl.Render(Data{})
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	tmpl := Fallback()
	assert.True(t, tmpl.IsFallback())

	got, err := tmpl.Render(Data{Context: "C", Question: "Q"})
	require.NoError(t, err)
	assert.Equal(t, "Answer based on context: C \n Question: Q", got)
}

func TestFileStore_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "financial_analysis.txt"), []byte("ctx: {{.Context}}"), 0o644))

	tmpl, err := NewFileStore(dir, discardLogger()).Load(DefaultName)
	require.NoError(t, err)
	assert.False(t, tmpl.IsFallback())

	got, err := tmpl.Render(Data{Context: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ctx: x", got)
}

func TestFileStore_MissingFileFallsBack(t *testing.T) {
	tmpl, err := NewFileStore(t.TempDir(), discardLogger()).Load(DefaultName)
	require.NoError(t, err)
	assert.True(t, tmpl.IsFallback())
}

func TestFileStore_Manifest(t *testing.T) {
	dir := t.TempDir()
	manifest := "templates:\n  financial_analysis: custom/fin.tmpl\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "custom"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom", "fin.tmpl"), []byte("custom {{.Question}}"), 0o644))

	store := NewFileStore(dir, discardLogger())

	path, err := store.Path(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom", "fin.tmpl"), path)

	tmpl, err := store.Load(DefaultName)
	require.NoError(t, err)
	got, err := tmpl.Render(Data{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "custom q", got)
}

func TestFileStore_BadManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("templates: [oops"), 0o644))

	_, err := NewFileStore(dir, discardLogger()).Load(DefaultName)
	assert.Error(t, err)
}

func TestStaticStore(t *testing.T) {
	tmpl, err := StaticStore{}.Load("anything")
	require.NoError(t, err)
	assert.True(t, tmpl.IsFallback())
}
