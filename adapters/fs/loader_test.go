package fs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/Abraxas-365/finrag/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_TextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	writeFile(t, path, "Revenue was $1B\fCosts were $400M")

	pages, err := datasource.Collect(NewLoader().Load(context.Background(), path))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Revenue was $1B", pages[0].Text)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, 2, pages[1].Number)
}

func TestLoader_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	writeFile(t, path, "# Notes")

	pages, err := datasource.Collect(NewLoader().Load(context.Background(), "file://"+path))
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.txt")
	writeFile(t, big, "0123456789")

	tests := []struct {
		name   string
		loader *Loader
		source string
		code   string
	}{
		{"missing", NewLoader(), filepath.Join(dir, "nope.txt"), datasource.ErrCodeNotFound},
		{"directory", NewLoader(), dir, datasource.ErrCodeInvalidSource},
		{"too large", NewLoader(datasource.WithMaxBytes(4)), big, datasource.ErrCodeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := datasource.Collect(tt.loader.Load(context.Background(), tt.source))
			var dsErr *datasource.DataSourceError
			require.True(t, errors.As(err, &dsErr))
			assert.Equal(t, tt.code, dsErr.Code)
		})
	}
}

func TestLoader_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	writeFile(t, path, "  \n ")

	pages, err := datasource.Collect(NewLoader().Load(context.Background(), path))
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestLoader_Expand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.pdf"), "x")
	writeFile(t, filepath.Join(dir, "a.txt"), "x")
	writeFile(t, filepath.Join(dir, "image.png"), "x")
	writeFile(t, filepath.Join(dir, "sub", "c.md"), "x")

	files, err := NewLoader().Expand(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.pdf")}, files)

	files, err = NewLoader(datasource.WithRecursive(true)).Expand(dir)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = NewLoader().Expand(filepath.Join(dir, "image.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "image.png")}, files)
}

func TestLoader_PDFExtractFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	writeFile(t, path, "not a pdf")

	_, err := datasource.Collect(NewLoader(datasource.WithPDFToText("finrag-no-such-binary")).Load(context.Background(), path))
	var dsErr *datasource.DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, datasource.ErrCodeExtractFailed, dsErr.Code)
}

func TestLoader_PDF(t *testing.T) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		t.Skip("pdftotext not available")
	}

	path := filepath.Join(t.TempDir(), "broken.pdf")
	writeFile(t, path, "not a pdf")

	_, err := datasource.Collect(NewLoader().Load(context.Background(), path))
	assert.Error(t, err)
}
