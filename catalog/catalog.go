package catalog

import (
	"context"
	"path/filepath"
	"strings"
)

// Catalog records document lifecycle transitions on top of a Repository.
type Catalog struct {
	repo Repository
	opts *Options
}

func New(repo Repository, opts ...Option) *Catalog {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Catalog{
		repo: repo,
		opts: options,
	}
}

// FileType returns the upper-cased extension of name, e.g. "PDF".
func FileType(name string) string {
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Register adds source as pending, replacing any previous entry.
func (c *Catalog) Register(ctx context.Context, source, fileName string, size int64) (*Document, error) {
	now := c.opts.Now()
	doc := Document{
		Source:    source,
		FileName:  fileName,
		FileType:  FileType(fileName),
		Size:      size,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Progress marks source as processing at the given percentage.
func (c *Catalog) Progress(ctx context.Context, source string, percent int) error {
	return c.repo.UpdateStatus(ctx, source, StatusUpdate{
		Status:    StatusProcessing,
		Progress:  percent,
		UpdatedAt: c.opts.Now(),
	})
}

// Ingested marks source as fully ingested.
func (c *Catalog) Ingested(ctx context.Context, source string, chunks int) error {
	return c.repo.UpdateStatus(ctx, source, StatusUpdate{
		Status:     StatusIngested,
		Progress:   100,
		ChunkCount: chunks,
		UpdatedAt:  c.opts.Now(),
	})
}

// Failed marks source as failed with cause. Progress keeps its last value.
func (c *Catalog) Failed(ctx context.Context, source string, progress int, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return c.repo.UpdateStatus(ctx, source, StatusUpdate{
		Status:    StatusError,
		Progress:  progress,
		Error:     msg,
		UpdatedAt: c.opts.Now(),
	})
}

// Archive hides source from the ingested set without deleting it.
func (c *Catalog) Archive(ctx context.Context, source string) error {
	doc, err := c.repo.Get(ctx, source)
	if err != nil {
		return err
	}
	return c.repo.UpdateStatus(ctx, source, StatusUpdate{
		Status:     StatusArchived,
		Progress:   doc.Progress,
		ChunkCount: doc.ChunkCount,
		UpdatedAt:  c.opts.Now(),
	})
}

func (c *Catalog) Get(ctx context.Context, source string) (*Document, error) {
	return c.repo.Get(ctx, source)
}

// Documents lists entries matching filter. A limit of zero uses the
// configured return limit.
func (c *Catalog) Documents(ctx context.Context, filter Filter, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = c.opts.ReturnLimit
	}
	return c.repo.List(ctx, filter, limit, 0)
}

// Stats summarises the catalog.
type Stats struct {
	Total      int
	Ingested   int
	Processing int
	Failed     int
}

func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error

	if s.Total, err = c.repo.Count(ctx, Filter{}); err != nil {
		return Stats{}, err
	}
	if s.Ingested, err = c.repo.Count(ctx, Filter{Statuses: []Status{StatusIngested}}); err != nil {
		return Stats{}, err
	}
	if s.Processing, err = c.repo.Count(ctx, Filter{Statuses: []Status{StatusProcessing}}); err != nil {
		return Stats{}, err
	}
	if s.Failed, err = c.repo.Count(ctx, Filter{Statuses: []Status{StatusError}}); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func (c *Catalog) Delete(ctx context.Context, source string) error {
	return c.repo.Delete(ctx, source)
}

// Clear removes every entry.
func (c *Catalog) Clear(ctx context.Context) error {
	return c.repo.Clear(ctx)
}
