package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/vectorstore"
	"github.com/go-openapi/strfmt"
	wvt "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const storeName = "weaviate"

type Config struct {
	// Host may carry an http:// or https:// prefix.
	Host   string
	APIKey string
}

// Store keeps each collection in a Weaviate class with vectorizer "none";
// vectors always come from the configured embedder.
type Store struct {
	client *wvt.Client
}

var _ vectorstore.Store = (*Store)(nil)

func NewStore(cfg Config) (*Store, error) {
	scheme := "http"
	if strings.HasPrefix(cfg.Host, "https://") {
		scheme = "https"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")

	wcfg := wvt.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := wvt.NewClient(wcfg)
	if err != nil {
		return nil, vectorstore.NewInitFailedError(storeName, fmt.Errorf("failed to create weaviate client: %w", err))
	}

	return &Store{client: client}, nil
}

// ClassName maps a collection name onto a valid Weaviate class name.
func ClassName(collection string) string {
	var b strings.Builder
	for _, r := range collection {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || !(name[0] >= 'a' && name[0] <= 'z' || name[0] >= 'A' && name[0] <= 'Z') {
		name = "C" + name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (s *Store) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	class := ClassName(collection)

	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}
	if exists {
		return nil
	}

	classObj := &models.Class{
		Class: class,
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "page", DataType: []string{"int"}},
			{Name: "metadata", DataType: []string{"text"}},
		},
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
	}

	if err := s.client.Schema().ClassCreator().WithClass(classObj).Do(ctx); err != nil {
		return vectorstore.NewInitFailedError(storeName, fmt.Errorf("failed to create class %s: %w", class, err))
	}
	return nil
}

// Upsert sends every chunk in one batch request. Weaviate applies batch
// objects independently, so when some objects fail the ones that were
// written are deleted again before the error is returned.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []document.Chunk) error {
	class := ClassName(collection)

	objects, err := buildObjects(class, chunks)
	if err != nil {
		return vectorstore.NewAddFailedError(storeName, err)
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return vectorstore.NewAddFailedError(storeName, fmt.Errorf("failed to insert %d objects: %w", len(objects), err))
	}
	if err := batchErrors(resp); err != nil {
		s.rollback(ctx, class, writtenIDs(resp))
		return vectorstore.NewAddFailedError(storeName, err)
	}
	return nil
}

func (s *Store) rollback(ctx context.Context, class string, ids []strfmt.UUID) {
	// cleanup must run even if ctx ended the batch
	ctx = context.WithoutCancel(ctx)
	for _, id := range ids {
		_ = s.client.Data().Deleter().WithClassName(class).WithID(id.String()).Do(ctx)
	}
}

func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int) ([]vectorstore.SearchResult, error) {
	class := ClassName(collection)

	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}
	if !exists {
		return nil, nil
	}

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "page"},
		{Name: "metadata"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := s.client.GraphQL().Get().
		WithClassName(class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}
	if len(result.Errors) > 0 {
		return nil, vectorstore.NewSearchFailedError(storeName, fmt.Errorf("search failed: %s", result.Errors[0].Message))
	}

	return parseResults(result.Data, class), nil
}

func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	class := ClassName(collection)

	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return vectorstore.NewDeleteFailedError(storeName, err)
	}
	if !exists {
		return nil
	}

	if err := s.client.Schema().ClassDeleter().WithClassName(class).Do(ctx); err != nil {
		return vectorstore.NewDeleteFailedError(storeName, err)
	}
	return nil
}

func toObject(class string, c document.Chunk) (*models.Object, error) {
	meta := "{}"
	if len(c.Metadata) > 0 {
		raw, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata for chunk %s: %w", c.ID, err)
		}
		meta = string(raw)
	}

	return &models.Object{
		Class: class,
		ID:    strfmt.UUID(c.ID),
		Properties: map[string]interface{}{
			"content":  c.Text,
			"source":   c.Source,
			"page":     c.PageNumber,
			"metadata": meta,
		},
		Vector: c.Vector,
	}, nil
}

// buildObjects converts all chunks up front so a bad chunk fails the
// upsert before anything is sent.
func buildObjects(class string, chunks []document.Chunk) ([]*models.Object, error) {
	objects := make([]*models.Object, 0, len(chunks))
	for _, c := range chunks {
		obj, err := toObject(class, c)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// writtenIDs returns the objects of a batch response that carry no error.
func writtenIDs(resp []models.ObjectsGetResponse) []strfmt.UUID {
	var ids []strfmt.UUID
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			continue
		}
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func batchErrors(resp []models.ObjectsGetResponse) error {
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				return fmt.Errorf("object %s: %s", r.ID, e.Message)
			}
		}
	}
	return nil
}

func parseResults(data map[string]models.JSONObject, class string) []vectorstore.SearchResult {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	items, ok := get[class].([]interface{})
	if !ok {
		return nil
	}

	results := make([]vectorstore.SearchResult, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		r := vectorstore.SearchResult{}
		r.Text, _ = obj["content"].(string)
		r.Source, _ = obj["source"].(string)
		if page, ok := obj["page"].(float64); ok {
			r.PageNumber = int(page)
		}
		if raw, ok := obj["metadata"].(string); ok && raw != "" {
			var meta map[string]any
			if json.Unmarshal([]byte(raw), &meta) == nil && len(meta) > 0 {
				r.Metadata = meta
			}
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			r.ID, _ = additional["id"].(string)
			if distance, ok := additional["distance"].(float64); ok {
				r.Score = float32(1 - distance)
			}
		}
		results = append(results, r)
	}
	return results
}
