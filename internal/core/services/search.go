package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/metrics"
	"github.com/custodia-labs/sercha-kb/internal/runtime"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// searchService implements the SearchService interface
type searchService struct {
	entities driven.EntityStore
	chunks   driven.ChunkStore
	services *runtime.Services // Dynamic embedding service
	cache    driven.EmbeddingCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// SearchServiceConfig holds dependencies for the search service
type SearchServiceConfig struct {
	Entities driven.EntityStore
	Chunks   driven.ChunkStore
	Services *runtime.Services

	// Cache is optional and holds query embeddings
	Cache   driven.EmbeddingCache
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewSearchService creates a new SearchService.
// The embedding service is resolved per query via runtime.Services, so
// query text is always embedded with the model used at index time.
func NewSearchService(cfg SearchServiceConfig) driving.SearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &searchService{
		entities: cfg.Entities,
		chunks:   cfg.Chunks,
		services: cfg.Services,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// SearchEntities ranks whole documents by their metadata vectors
func (s *searchService) SearchEntities(ctx context.Context, query domain.SearchQuery) (*domain.EntitySearchResult, error) {
	start := time.Now()
	vec, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.rankEntities(ctx, vec, query.Filters, clampLimit(query.Limit, domain.DefaultSearchLimit))
	if err != nil {
		return nil, err
	}

	took := time.Since(start)
	s.metrics.ObserveSearch("entities", took)
	return &domain.EntitySearchResult{Query: query.Text, Results: results, Took: took}, nil
}

// SearchChunks ranks passages by their content vectors
func (s *searchService) SearchChunks(ctx context.Context, query domain.SearchQuery) (*domain.ChunkSearchResult, error) {
	start := time.Now()
	vec, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.rankChunks(ctx, vec, query.Filters.ForChunks(), clampLimit(query.Limit, domain.DefaultSearchLimit), query.ContentMaxChars)
	if err != nil {
		return nil, err
	}

	took := time.Since(start)
	s.metrics.ObserveSearch("chunks", took)
	return &domain.ChunkSearchResult{Query: query.Text, Results: results, Took: took}, nil
}

// SearchHybrid ranks entities, then the passages of each entity. Entity
// order is exactly the order SearchEntities returns for the same filters.
func (s *searchService) SearchHybrid(ctx context.Context, query domain.HybridQuery) (*domain.HybridSearchResult, error) {
	start := time.Now()
	vec, err := s.queryVector(ctx, query.SearchQuery)
	if err != nil {
		return nil, err
	}

	top := clampLimit(query.TopEntities, domain.DefaultTopEntities)
	perEntity := clampLimit(query.ChunksPerEntity, domain.DefaultChunksPerEntity)

	entities, err := s.rankEntities(ctx, vec, query.Filters, top)
	if err != nil {
		return nil, err
	}

	hits := make([]*domain.HybridHit, 0, len(entities))
	for _, re := range entities {
		chunks, err := s.rankChunks(ctx, vec, domain.ChunkFilters{EntityID: re.Entity.ID}, perEntity, query.ContentMaxChars)
		if err != nil {
			return nil, err
		}
		hits = append(hits, &domain.HybridHit{Entity: re.Entity, Score: re.Score, Chunks: chunks})
	}

	took := time.Since(start)
	s.metrics.ObserveSearch("hybrid", took)
	return &domain.HybridSearchResult{Query: query.Text, Results: hits, Took: took}, nil
}

// ListCorpora returns entity counts per corpus, largest first
func (s *searchService) ListCorpora(ctx context.Context) ([]domain.CorpusCount, error) {
	counts, err := s.entities.CountByCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count corpora: %w", err)
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Corpus < counts[j].Corpus
	})
	return counts, nil
}

func (s *searchService) rankEntities(ctx context.Context, vec []float32, filters domain.SearchFilters, limit int) ([]*domain.RankedEntity, error) {
	results, err := s.entities.Search(ctx, vec, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		return domain.RankBefore(a.Score, a.Entity.UpdatedAt, a.Entity.ID, b.Score, b.Entity.UpdatedAt, b.Entity.ID)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	for _, r := range results {
		r.Score = domain.ClampScore(r.Score)
		r.Entity.Embedding = nil
	}
	return results, nil
}

func (s *searchService) rankChunks(ctx context.Context, vec []float32, filters domain.ChunkFilters, limit, maxChars int) ([]*domain.RankedChunk, error) {
	results, err := s.chunks.Search(ctx, vec, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	// Chunk stores order ties by the owning entity's updated_at, which
	// chunks do not carry, so their order is kept as returned.
	if len(results) > limit {
		results = results[:limit]
	}
	for _, r := range results {
		r.Score = domain.ClampScore(r.Score)
		r.Chunk.Embedding = nil
		r.Chunk.Content = domain.Truncate(r.Chunk.Content, maxChars)
	}
	return results, nil
}

// queryVector returns the pre-computed vector or embeds the query text
func (s *searchService) queryVector(ctx context.Context, query domain.SearchQuery) ([]float32, error) {
	svc := s.services.EmbeddingService()

	if len(query.Vector) > 0 {
		if svc != nil && svc.Dimensions() > 0 && len(query.Vector) != svc.Dimensions() {
			return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(query.Vector), svc.Dimensions())
		}
		return query.Vector, nil
	}

	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text or vector is required", domain.ErrValidation)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: no embedding service configured for text queries", domain.ErrServiceUnavailable)
	}

	if s.cache != nil {
		vec, ok, err := s.cache.Get(ctx, svc.Model(), text)
		if err != nil {
			s.logger.Warn("query embedding cache read failed", "error", err)
		} else if ok {
			return vec, nil
		}
	}

	vec, err := svc.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrCollaborator, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, svc.Model(), text, vec); err != nil {
			s.logger.Warn("query embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

// clampLimit applies the default to non-positive limits and caps the rest
func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > domain.MaxSearchLimit {
		return domain.MaxSearchLimit
	}
	return n
}
