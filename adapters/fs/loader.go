// Package fs loads documents from the local file system.
package fs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Abraxas-365/finrag/datasource"
	"github.com/Abraxas-365/finrag/document"
)

type Loader struct {
	opts datasource.LoadOptions
}

var _ datasource.Loader = (*Loader)(nil)

func NewLoader(opts ...datasource.Option) *Loader {
	return &Loader{opts: datasource.ApplyOptions(opts...)}
}

func (l *Loader) Load(ctx context.Context, source string) (<-chan document.Page, <-chan error) {
	path := strings.TrimPrefix(source, "file://")

	return datasource.Stream(ctx, func(emit func(document.Page) bool) error {
		pages, err := l.pages(ctx, path)
		if err != nil {
			return err
		}
		for _, p := range pages {
			if !emit(p) {
				return nil
			}
		}
		return nil
	})
}

func (l *Loader) pages(ctx context.Context, path string) ([]document.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		code := datasource.ErrCodeInternal
		switch {
		case os.IsNotExist(err):
			code = datasource.ErrCodeNotFound
		case os.IsPermission(err):
			code = datasource.ErrCodeAccessDenied
		}
		return nil, &datasource.DataSourceError{Source: path, Op: "Load", Code: code, Message: "cannot open file", Err: err}
	}
	if info.IsDir() {
		return nil, &datasource.DataSourceError{Source: path, Op: "Load", Code: datasource.ErrCodeInvalidSource, Message: "source is a directory"}
	}
	if l.opts.MaxBytes > 0 && info.Size() > l.opts.MaxBytes {
		return nil, &datasource.DataSourceError{Source: path, Op: "Load", Code: datasource.ErrCodeTooLarge, Message: "file exceeds size limit"}
	}

	if datasource.DetectFormat(path, "") == datasource.FormatPDF {
		return datasource.PDFPages(ctx, l.opts.PDFToText, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &datasource.DataSourceError{Source: path, Op: "Load", Code: datasource.ErrCodeInternal, Message: "failed to read file", Err: err}
	}
	return datasource.Parse(ctx, path, data, "", l.opts)
}

// Expand resolves root into the loadable files it names. A file resolves
// to itself; a directory to its supported files, descending into
// subdirectories only when the loader is recursive.
func (l *Loader) Expand(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !l.opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if l.opts.Accept(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
