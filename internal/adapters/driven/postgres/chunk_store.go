package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL with pgvector.
// Chunks are written by DocumentWriter only.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

const chunkColumns = `c.id, c.entity_id, c.position, c.total_chunks, c.heading_path, c.content,
	c.token_count, c.corpus, c.content_type, c.embedding, c.created_at`

func scanChunk(row rowScanner, extra ...any) (*domain.Chunk, error) {
	var (
		c         domain.Chunk
		headings  pq.StringArray
		embedding Vector
	)
	dest := []any{
		&c.ID, &c.EntityID, &c.Position, &c.TotalChunks, &headings, &c.Content,
		&c.TokenCount, &c.Corpus, &c.ContentType, &embedding, &c.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, notFound(err)
	}
	c.HeadingPath = []string(headings)
	if embedding != nil {
		c.Embedding = embedding
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func scanChunks(rows *sql.Rows) ([]*domain.Chunk, error) {
	defer rows.Close()
	var out []*domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByEntity retrieves an entity's chunks ordered by position
func (s *ChunkStore) GetByEntity(ctx context.Context, entityID string) ([]*domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks c WHERE c.entity_id = $1 ORDER BY c.position`, entityID)
	if err != nil {
		return nil, mapError(err)
	}
	return scanChunks(rows)
}

// SetEmbedding sets the passage-level vector
func (s *ChunkStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chunks SET embedding = $2::vector WHERE id = $1`, id, Vector(embedding))
	if err != nil {
		return mapError(err)
	}
	return expectRow(res)
}

// ListMissingEmbeddings returns chunks whose vector is null, grouped by entity
func (s *ChunkStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks c WHERE c.embedding IS NULL
		ORDER BY c.entity_id, c.position LIMIT NULLIF($1, 0)`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	return scanChunks(rows)
}

// Search ranks chunks by cosine similarity. Ties break by the owning
// entity's updated_at, then chunk ID.
func (s *ChunkStore) Search(ctx context.Context, query []float32, filters domain.ChunkFilters, limit int) ([]*domain.RankedChunk, error) {
	p := &predicates{}
	p.bind(Vector(query))
	p.raw("c.embedding IS NOT NULL")
	chunkFilters(p, filters)
	limitArg := p.bind(limit)

	q := fmt.Sprintf(`SELECT %s, %s AS score FROM chunks c JOIN entities e ON e.id = c.entity_id %s
		ORDER BY score DESC, e.updated_at DESC, c.id ASC LIMIT NULLIF(%s, 0)`,
		chunkColumns, scoreExpr("c.embedding"), p.where(), limitArg)

	rows, err := s.db.QueryContext(ctx, q, p.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*domain.RankedChunk
	for rows.Next() {
		var score float64
		c, err := scanChunk(rows, &score)
		if err != nil {
			return nil, err
		}
		out = append(out, &domain.RankedChunk{Chunk: c, Score: score})
	}
	return out, rows.Err()
}
