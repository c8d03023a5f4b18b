package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ResolveFunc computes the entity row and full chunk set to persist, given
// the current row (nil when the entity does not exist yet).
type ResolveFunc func(existing *domain.Entity) (*domain.Entity, []*domain.Chunk, error)

// DocumentWriter commits one document atomically. Implementations lock the
// entity row, call resolve, upsert the entity and replace all of its chunks
// in a single transaction. Any error rolls the whole document back.
type DocumentWriter interface {
	WriteDocument(ctx context.Context, entityID string, resolve ResolveFunc) (*domain.Entity, error)
}

// EntityStore handles entity persistence and entity-level vector ranking
type EntityStore interface {
	// Get retrieves an entity by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Entity, error)

	// List returns entities ordered by ID with pagination
	List(ctx context.Context, limit, offset int) ([]*domain.Entity, error)

	// Delete removes an entity and cascades to its chunks
	Delete(ctx context.Context, id string) error

	// SetEmbedding sets the document-level vector
	SetEmbedding(ctx context.Context, id string, embedding []float32) error

	// ListMissingEmbeddings returns entities whose vector is null
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Entity, error)

	// Search ranks entities with a vector by similarity to query.
	// Filters restrict the candidate set before ranking and limit.
	// Scores are raw cosine similarity in [-1,1], unclamped so negative
	// matches keep their order; ties break by updated_at DESC.
	Search(ctx context.Context, query []float32, filters domain.SearchFilters, limit int) ([]*domain.RankedEntity, error)

	// CountByCorpus returns entity counts grouped by corpus, largest first
	CountByCorpus(ctx context.Context) ([]domain.CorpusCount, error)
}

// ChunkStore handles chunk persistence and passage-level vector ranking.
// Chunks are written only through DocumentWriter.
type ChunkStore interface {
	// GetByEntity retrieves an entity's chunks ordered by position
	GetByEntity(ctx context.Context, entityID string) ([]*domain.Chunk, error)

	// SetEmbedding sets the passage-level vector
	SetEmbedding(ctx context.Context, id string, embedding []float32) error

	// ListMissingEmbeddings returns chunks whose vector is null
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error)

	// Search ranks chunks with a vector by similarity to query, with the
	// same pre-filter and tie-break rules as EntityStore.Search. Ties break
	// by the owning entity's updated_at.
	Search(ctx context.Context, query []float32, filters domain.ChunkFilters, limit int) ([]*domain.RankedChunk, error)
}
