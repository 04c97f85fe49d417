package inmemory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/Abraxas-365/finrag/catalog"
)

// CatalogRepository implements catalog.Repository using in-memory storage
type CatalogRepository struct {
	documents map[string]catalog.Document
	mu        sync.RWMutex
}

var _ catalog.Repository = (*CatalogRepository)(nil)

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		documents: make(map[string]catalog.Document),
	}
}

func (r *CatalogRepository) Save(ctx context.Context, doc catalog.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc.Metadata = maps.Clone(doc.Metadata)
	r.documents[doc.Source] = doc
	return nil
}

func (r *CatalogRepository) Get(ctx context.Context, source string) (*catalog.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.documents[source]
	if !exists {
		return nil, catalog.ErrNotFound
	}

	doc.Metadata = maps.Clone(doc.Metadata)
	return &doc, nil
}

func (r *CatalogRepository) UpdateStatus(ctx context.Context, source string, update catalog.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, exists := r.documents[source]
	if !exists {
		return catalog.ErrNotFound
	}

	doc.Status = update.Status
	doc.Progress = update.Progress
	doc.ChunkCount = update.ChunkCount
	doc.Error = update.Error
	doc.UpdatedAt = update.UpdatedAt
	r.documents[source] = doc

	return nil
}

func (r *CatalogRepository) List(ctx context.Context, filter catalog.Filter, limit, offset int) ([]catalog.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var docs []catalog.Document
	for _, doc := range r.documents {
		if filter.Matches(doc) {
			doc.Metadata = maps.Clone(doc.Metadata)
			docs = append(docs, doc)
		}
	}

	// Sort by UpdatedAt descending, then by source for a stable order
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].Source < docs[j].Source
	})

	if offset >= len(docs) {
		return []catalog.Document{}, nil
	}

	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return docs[offset:end], nil
}

func (r *CatalogRepository) Count(ctx context.Context, filter catalog.Filter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.IsEmpty() {
		return len(r.documents), nil
	}

	count := 0
	for _, doc := range r.documents {
		if filter.Matches(doc) {
			count++
		}
	}
	return count, nil
}

func (r *CatalogRepository) Delete(ctx context.Context, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.documents, source)
	return nil
}

func (r *CatalogRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.documents = make(map[string]catalog.Document)
	return nil
}
