package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentWriter = (*DocumentWriter)(nil)

// DocumentWriter commits an entity and its full chunk set in one
// transaction
type DocumentWriter struct {
	db *DB
}

// NewDocumentWriter creates a new DocumentWriter
func NewDocumentWriter(db *DB) *DocumentWriter {
	return &DocumentWriter{db: db}
}

// WriteDocument serializes writers of one entity with a transaction-scoped
// advisory lock, so the resolve callback sees the row it will overwrite.
func (w *DocumentWriter) WriteDocument(ctx context.Context, entityID string, resolve driven.ResolveFunc) (*domain.Entity, error) {
	var written *domain.Entity
	err := w.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "entity:"+entityID); err != nil {
			return err
		}

		existing, err := scanEntity(tx.QueryRowContext(ctx,
			`SELECT `+entityColumns+` FROM entities WHERE id = $1 FOR UPDATE`, entityID))
		switch {
		case errors.Is(err, domain.ErrNotFound):
			existing = nil
		case err != nil:
			return err
		}

		entity, chunks, err := resolve(existing)
		if err != nil {
			return err
		}
		entity.ChunkCount = len(chunks)

		if err := upsertEntity(ctx, tx, entity); err != nil {
			return err
		}
		if err := replaceChunks(ctx, tx, entity.ID, chunks); err != nil {
			return err
		}
		written = entity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

func upsertEntity(ctx context.Context, tx *sql.Tx, e *domain.Entity) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %w", domain.ErrValidation, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (id, title, entity_type, corpus, content_type, lifecycle_stage, source_path,
			metadata, embedding, primary_pattern_id, content_hash, chunk_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			corpus = EXCLUDED.corpus,
			content_type = EXCLUDED.content_type,
			lifecycle_stage = EXCLUDED.lifecycle_stage,
			source_path = EXCLUDED.source_path,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			primary_pattern_id = EXCLUDED.primary_pattern_id,
			content_hash = EXCLUDED.content_hash,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at
	`,
		e.ID, e.Title, e.EntityType, e.Corpus, e.ContentType, e.LifecycleStage, e.SourcePath,
		meta, Vector(e.Embedding), nullable(e.PrimaryPatternID), e.ContentHash, e.ChunkCount,
		e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// replaceChunks deletes the entity's chunks and inserts the new set
func replaceChunks(ctx context.Context, tx *sql.Tx, entityID string, chunks []*domain.Chunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE entity_id = $1`, entityID); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, entity_id, position, total_chunks, heading_path, content,
			token_count, corpus, content_type, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::vector, $11)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx,
			c.ID, entityID, c.Position, c.TotalChunks, pq.Array(c.HeadingPath), c.Content,
			c.TokenCount, c.Corpus, c.ContentType, Vector(c.Embedding), c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Position, err)
		}
	}
	return nil
}
