package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// SearchService answers queries against entity and passage vectors.
// Queries carry either text, embedded with the index-time model, or a
// pre-computed vector.
type SearchService interface {
	// SearchEntities ranks whole documents by their metadata vectors
	SearchEntities(ctx context.Context, query domain.SearchQuery) (*domain.EntitySearchResult, error)

	// SearchChunks ranks passages by their content vectors
	SearchChunks(ctx context.Context, query domain.SearchQuery) (*domain.ChunkSearchResult, error)

	// SearchHybrid ranks entities, then passages within each entity
	SearchHybrid(ctx context.Context, query domain.HybridQuery) (*domain.HybridSearchResult, error)

	// ListCorpora returns entity counts per corpus
	ListCorpora(ctx context.Context) ([]domain.CorpusCount, error)
}
