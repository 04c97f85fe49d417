package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Abraxas-365/finrag/catalog"
	"github.com/lib/pq"
)

// CatalogRepository stores catalog entries in PostgreSQL.
type CatalogRepository struct {
	db *sql.DB
}

var _ catalog.Repository = (*CatalogRepository)(nil)

func NewCatalogRepository(db *sql.DB) (*CatalogRepository, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	return &CatalogRepository{db: db}, nil
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Required database schema
const schema = `
CREATE TABLE IF NOT EXISTS catalog_documents (
    source TEXT PRIMARY KEY,
    file_name TEXT NOT NULL,
    file_type TEXT NOT NULL,
    size BIGINT NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    progress INTEGER NOT NULL DEFAULT 0,
    chunk_count INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    metadata JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_catalog_documents_status ON catalog_documents(status);
CREATE INDEX IF NOT EXISTS idx_catalog_documents_updated_at ON catalog_documents(updated_at);
`

func (r *CatalogRepository) InitSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *CatalogRepository) Save(ctx context.Context, doc catalog.Document) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO catalog_documents
			(source, file_name, file_type, size, status, progress, chunk_count, error, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (source) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_type = EXCLUDED.file_type,
			size = EXCLUDED.size,
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			chunk_count = EXCLUDED.chunk_count,
			error = EXCLUDED.error,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		doc.Source,
		doc.FileName,
		doc.FileType,
		doc.Size,
		string(doc.Status),
		doc.Progress,
		doc.ChunkCount,
		doc.Error,
		metadata,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

const selectColumns = `source, file_name, file_type, size, status, progress, chunk_count, error, metadata, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*catalog.Document, error) {
	var doc catalog.Document
	var status string
	var metadataJSON []byte

	err := row.Scan(
		&doc.Source,
		&doc.FileName,
		&doc.FileType,
		&doc.Size,
		&status,
		&doc.Progress,
		&doc.ChunkCount,
		&doc.Error,
		&metadataJSON,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = catalog.Status(status)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

func (r *CatalogRepository) Get(ctx context.Context, source string) (*catalog.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM catalog_documents WHERE source = $1`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, source))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *CatalogRepository) UpdateStatus(ctx context.Context, source string, update catalog.StatusUpdate) error {
	query := `
		UPDATE catalog_documents
		SET status = $1, progress = $2, chunk_count = $3, error = $4, updated_at = $5
		WHERE source = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		string(update.Status),
		update.Progress,
		update.ChunkCount,
		update.Error,
		update.UpdatedAt,
		source,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// whereClause builds the WHERE conditions for filter, numbering
// parameters from 1.
func whereClause(filter catalog.Filter) (string, []any) {
	conditions := []string{"1=1"}
	params := []any{}
	paramCount := 1

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", paramCount))
		params = append(params, pq.Array(statuses))
		paramCount++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("file_name ILIKE $%d", paramCount))
		params = append(params, "%"+filter.Search+"%")
	}

	return strings.Join(conditions, " AND "), params
}

func (r *CatalogRepository) List(ctx context.Context, filter catalog.Filter, limit, offset int) ([]catalog.Document, error) {
	where, params := whereClause(filter)

	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog_documents
		WHERE %s
		ORDER BY updated_at DESC, source
	`, selectColumns, where)

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(params)+1)
		params = append(params, limit)
	}
	query += fmt.Sprintf(" OFFSET $%d", len(params)+1)
	params = append(params, offset)

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []catalog.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

func (r *CatalogRepository) Count(ctx context.Context, filter catalog.Filter) (int, error) {
	where, params := whereClause(filter)

	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_documents WHERE "+where, params...).Scan(&count)
	return count, err
}

func (r *CatalogRepository) Delete(ctx context.Context, source string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM catalog_documents WHERE source = $1`, source)
	return err
}

func (r *CatalogRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM catalog_documents`)
	return err
}
