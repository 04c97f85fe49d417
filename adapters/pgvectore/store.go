package pgvectore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abraxas-365/finrag/document"
	"github.com/Abraxas-365/finrag/vectorstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const storeName = "pgvector"

// undefinedTable is the Postgres error code for a missing relation.
const undefinedTable = "42P01"

// PGVectorStore keeps each collection in its own table.
type PGVectorStore struct {
	pool        *pgxpool.Pool
	tablePrefix string
	distance    vectorstore.DistanceMetric
}

var _ vectorstore.Store = (*PGVectorStore)(nil)

type Options struct {
	// TablePrefix is prepended to collection names to form table names.
	TablePrefix string
	Distance    vectorstore.DistanceMetric
}

func NewPGVectorStore(ctx context.Context, connString string, opts Options) (*PGVectorStore, error) {
	if opts.Distance == "" {
		opts.Distance = vectorstore.Cosine
	}

	switch opts.Distance {
	case vectorstore.Cosine, vectorstore.Euclidean, vectorstore.DotProduct:
	default:
		return nil, fmt.Errorf("invalid distance metric: %s", opts.Distance)
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("error parsing connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}

	return &PGVectorStore{
		pool:        pool,
		tablePrefix: opts.TablePrefix,
		distance:    opts.Distance,
	}, nil
}

func (p *PGVectorStore) table(collection string) string {
	return pgx.Identifier{p.tablePrefix + collection}.Sanitize()
}

func operatorAndOpClass(distance vectorstore.DistanceMetric) (string, string) {
	switch distance {
	case vectorstore.Euclidean:
		return "<->", "vector_l2_ops"
	case vectorstore.DotProduct:
		return "<#>", "vector_ip_ops"
	default:
		return "<=>", "vector_cosine_ops"
	}
}

// scoreExpr turns the distance operator into a higher-is-better score.
func scoreExpr(distance vectorstore.DistanceMetric) string {
	operator, _ := operatorAndOpClass(distance)
	switch distance {
	case vectorstore.DotProduct:
		return fmt.Sprintf("(embedding %s $1) * -1", operator)
	case vectorstore.Euclidean:
		return fmt.Sprintf("1 / (1 + (embedding %s $1))", operator)
	default:
		return fmt.Sprintf("1 - (embedding %s $1)", operator)
	}
}

func (p *PGVectorStore) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return vectorstore.NewInitFailedError(storeName, fmt.Errorf("error creating vector extension: %w", err))
	}

	table := p.table(collection)
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			page_number INTEGER NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`, table, dimensions)

	if _, err := p.pool.Exec(ctx, createTableSQL); err != nil {
		return vectorstore.NewInitFailedError(storeName, fmt.Errorf("error creating table: %w", err))
	}

	indexSQL := indexStatement(p.tablePrefix+collection, table, p.distance)
	if _, err := p.pool.Exec(ctx, indexSQL); err != nil {
		return vectorstore.NewInitFailedError(storeName, fmt.Errorf("error creating index: %w", err))
	}

	return nil
}

// indexStatement builds the ANN index for a collection table. HNSW needs no
// training rows, so it is valid on the empty table EnsureCollection creates.
func indexStatement(name, table string, distance vectorstore.DistanceMetric) string {
	_, opClass := operatorAndOpClass(distance)
	return fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING hnsw (embedding %s)
	`, pgx.Identifier{name + "_embedding_idx"}.Sanitize(), table, opClass)
}

// Upsert writes all chunks in a single transaction.
func (p *PGVectorStore) Upsert(ctx context.Context, collection string, chunks []document.Chunk) error {
	upsertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, content, source, page_number, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			page_number = EXCLUDED.page_number,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`, p.table(collection))

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range chunks {
			batch.Queue(upsertSQL, c.ID, c.Text, c.Source, c.PageNumber, c.Metadata, pgvector.NewVector(c.Vector))
		}

		results := tx.SendBatch(ctx, batch)
		for i := range chunks {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("error upserting chunk %d: %w", i, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return vectorstore.NewAddFailedError(storeName, err)
	}

	return nil
}

func (p *PGVectorStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]vectorstore.SearchResult, error) {
	operator, _ := operatorAndOpClass(p.distance)

	query := fmt.Sprintf(`
		SELECT id, content, source, page_number, metadata, %s AS similarity
		FROM %s
		ORDER BY embedding %s $1
		LIMIT $2
	`, scoreExpr(p.distance), p.table(collection), operator)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}
	defer rows.Close()

	var results []vectorstore.SearchResult
	for rows.Next() {
		var r vectorstore.SearchResult
		var score float64
		if err := rows.Scan(&r.ID, &r.Text, &r.Source, &r.PageNumber, &r.Metadata, &score); err != nil {
			return nil, vectorstore.NewSearchFailedError(storeName, fmt.Errorf("error scanning row: %w", err))
		}
		r.Score = float32(score)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}

	return results, nil
}

func (p *PGVectorStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", p.table(collection))); err != nil {
		return vectorstore.NewDeleteFailedError(storeName, err)
	}
	return nil
}

func (p *PGVectorStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
