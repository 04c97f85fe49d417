// Package catalog tracks the documents known to a knowledge base and their
// ingestion status.
package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// Status is the processing state of a document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusIngested   Status = "ingested"
	StatusArchived   Status = "archived"
	StatusError      Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusIngested, StatusArchived, StatusError:
		return true
	}
	return false
}

// ErrNotFound is returned for an unknown source.
var ErrNotFound = errors.New("catalog: document not found")

// Document is a catalog entry, keyed by Source.
type Document struct {
	Source     string         `json:"source"`
	FileName   string         `json:"file_name"`
	FileType   string         `json:"file_type"`
	Size       int64          `json:"size"`
	Status     Status         `json:"status"`
	Progress   int            `json:"progress"`
	ChunkCount int            `json:"chunk_count"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Filter represents query filters for catalog listings
type Filter struct {
	Statuses []Status
	// Search matches file names case-insensitively.
	Search string
}

func (f Filter) IsEmpty() bool {
	return len(f.Statuses) == 0 && f.Search == ""
}

// Matches reports whether doc passes the filter.
func (f Filter) Matches(doc Document) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, doc.Status) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(doc.FileName), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Repository interface defines the storage operations for catalog entries
type Repository interface {
	// Save inserts or replaces the entry for doc.Source.
	Save(ctx context.Context, doc Document) error

	// Get returns ErrNotFound for an unknown source.
	Get(ctx context.Context, source string) (*Document, error)

	// UpdateStatus changes status, progress, chunk count and error of an
	// existing entry.
	UpdateStatus(ctx context.Context, source string, update StatusUpdate) error

	// List returns entries ordered by UpdatedAt, newest first.
	List(ctx context.Context, filter Filter, limit, offset int) ([]Document, error)

	Count(ctx context.Context, filter Filter) (int, error)

	Delete(ctx context.Context, source string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// StatusUpdate is a partial update applied by UpdateStatus.
type StatusUpdate struct {
	Status     Status
	Progress   int
	ChunkCount int
	Error      string
	UpdatedAt  time.Time
}
