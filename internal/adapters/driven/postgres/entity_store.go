package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EntityStore = (*EntityStore)(nil)

// EntityStore implements driven.EntityStore using PostgreSQL with pgvector
type EntityStore struct {
	db *DB
}

// NewEntityStore creates a new EntityStore
func NewEntityStore(db *DB) *EntityStore {
	return &EntityStore{db: db}
}

const entityColumns = `id, title, entity_type, corpus, content_type, lifecycle_stage, source_path,
	metadata, embedding, primary_pattern_id, content_hash, chunk_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner, extra ...any) (*domain.Entity, error) {
	var (
		e         domain.Entity
		meta      []byte
		embedding Vector
		patternID sql.NullString
	)
	dest := []any{
		&e.ID, &e.Title, &e.EntityType, &e.Corpus, &e.ContentType, &e.LifecycleStage, &e.SourcePath,
		&meta, &embedding, &patternID, &e.ContentHash, &e.ChunkCount, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, notFound(err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", e.ID, err)
		}
	}
	if embedding != nil {
		e.Embedding = embedding
	}
	e.PrimaryPatternID = patternID.String
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*domain.Entity, error) {
	defer rows.Close()
	var out []*domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get retrieves an entity by ID
func (s *EntityStore) Get(ctx context.Context, id string) (*domain.Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = $1`, id)
	return scanEntity(row)
}

// List returns entities ordered by ID. A zero limit returns all rows.
func (s *EntityStore) List(ctx context.Context, limit, offset int) ([]*domain.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities ORDER BY id LIMIT NULLIF($1, 0) OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	return scanEntities(rows)
}

// Delete removes an entity; chunks cascade
func (s *EntityStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectRow(res)
}

// SetEmbedding sets the document-level vector
func (s *EntityStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE entities SET embedding = $2::vector WHERE id = $1`, id, Vector(embedding))
	if err != nil {
		return mapError(err)
	}
	return expectRow(res)
}

// ListMissingEmbeddings returns entities whose vector is null
func (s *EntityStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE embedding IS NULL ORDER BY id LIMIT NULLIF($1, 0)`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	return scanEntities(rows)
}

// Search ranks entities by cosine similarity. Filters are part of the
// WHERE clause, so they apply before LIMIT.
func (s *EntityStore) Search(ctx context.Context, query []float32, filters domain.SearchFilters, limit int) ([]*domain.RankedEntity, error) {
	p := &predicates{}
	p.bind(Vector(query))
	p.raw("embedding IS NOT NULL")
	entityFilters(p, filters)
	limitArg := p.bind(limit)

	q := fmt.Sprintf(`SELECT %s, %s AS score FROM entities %s
		ORDER BY score DESC, updated_at DESC, id ASC LIMIT NULLIF(%s, 0)`,
		entityColumns, scoreExpr("embedding"), p.where(), limitArg)

	rows, err := s.db.QueryContext(ctx, q, p.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*domain.RankedEntity
	for rows.Next() {
		var score float64
		e, err := scanEntity(rows, &score)
		if err != nil {
			return nil, err
		}
		out = append(out, &domain.RankedEntity{Entity: e, Score: score})
	}
	return out, rows.Err()
}

// CountByCorpus returns entity counts grouped by corpus, largest first
func (s *EntityStore) CountByCorpus(ctx context.Context) ([]domain.CorpusCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT corpus, COUNT(*) FROM entities GROUP BY corpus ORDER BY COUNT(*) DESC, corpus`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.CorpusCount
	for rows.Next() {
		var c domain.CorpusCount
		if err := rows.Scan(&c.Corpus, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
