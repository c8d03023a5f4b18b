package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.DocumentWriter = (*MockStore)(nil)
	_ driven.EntityStore    = (*MockEntityStore)(nil)
	_ driven.ChunkStore     = (*MockChunkStore)(nil)
)

// MockStore is an in-memory knowledge store. Writes are atomic under one
// mutex, so a failed WriteDocument leaves no trace. Ranking is brute-force
// cosine similarity over the filtered candidate set, unclamped like the
// postgres stores.
type MockStore struct {
	mu       sync.RWMutex
	entities map[string]*domain.Entity
	chunks   map[string][]*domain.Chunk // by entity ID

	// WriteErr, when set, is called after resolve and before the commit.
	// A non-nil return aborts the write.
	WriteErr func(entity *domain.Entity, chunks []*domain.Chunk) error

	// Now supplies timestamps; defaults to time.Now
	Now func() time.Time

	writes int
}

// NewMockStore creates a new MockStore
func NewMockStore() *MockStore {
	return &MockStore{
		entities: make(map[string]*domain.Entity),
		chunks:   make(map[string][]*domain.Chunk),
		Now:      time.Now,
	}
}

// Entities returns the entity view of the store
func (m *MockStore) Entities() *MockEntityStore { return &MockEntityStore{m} }

// Chunks returns the chunk view of the store
func (m *MockStore) Chunks() *MockChunkStore { return &MockChunkStore{m} }

// Writes returns the number of committed document writes
func (m *MockStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MockStore) WriteDocument(ctx context.Context, entityID string, resolve driven.ResolveFunc) (*domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var existing *domain.Entity
	if e, ok := m.entities[entityID]; ok {
		existing = cloneEntity(e)
	}

	entity, chunks, err := resolve(existing)
	if err != nil {
		return nil, err
	}
	if m.WriteErr != nil {
		if err := m.WriteErr(entity, chunks); err != nil {
			return nil, err
		}
	}

	stored := cloneEntity(entity)
	stored.ChunkCount = len(chunks)
	m.entities[entityID] = stored

	copied := make([]*domain.Chunk, len(chunks))
	for i, c := range chunks {
		copied[i] = cloneChunk(c)
	}
	m.chunks[entityID] = copied
	m.writes++
	return cloneEntity(stored), nil
}

// MockEntityStore is the entity view of MockStore
type MockEntityStore struct{ m *MockStore }

func (s *MockEntityStore) Get(ctx context.Context, id string) (*domain.Entity, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	e, ok := s.m.entities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneEntity(e), nil
}

func (s *MockEntityStore) List(ctx context.Context, limit, offset int) ([]*domain.Entity, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	ids := make([]string, 0, len(s.m.entities))
	for id := range s.m.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return nil, nil
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*domain.Entity, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, cloneEntity(s.m.entities[id]))
	}
	return out, nil
}

func (s *MockEntityStore) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.entities[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.m.entities, id)
	delete(s.m.chunks, id)
	return nil
}

func (s *MockEntityStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.entities[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Embedding = append([]float32(nil), embedding...)
	return nil
}

func (s *MockEntityStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Entity, error) {
	all, _ := s.List(ctx, 0, 0)
	var out []*domain.Entity
	for _, e := range all {
		if e.Embedding == nil {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MockEntityStore) Search(ctx context.Context, query []float32, filters domain.SearchFilters, limit int) ([]*domain.RankedEntity, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var hits []*domain.RankedEntity
	for _, e := range s.m.entities {
		if e.Embedding == nil || !filters.MatchEntity(e) {
			continue
		}
		hits = append(hits, &domain.RankedEntity{Entity: cloneEntity(e), Score: domain.RawSimilarity(query, e.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		return domain.RankBefore(a.Score, a.Entity.UpdatedAt, a.Entity.ID, b.Score, b.Entity.UpdatedAt, b.Entity.ID)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *MockEntityStore) CountByCorpus(ctx context.Context) ([]domain.CorpusCount, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.m.entities {
		counts[e.Corpus]++
	}
	out := make([]domain.CorpusCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, domain.CorpusCount{Corpus: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Corpus < out[j].Corpus
	})
	return out, nil
}

// MockChunkStore is the chunk view of MockStore
type MockChunkStore struct{ m *MockStore }

func (s *MockChunkStore) GetByEntity(ctx context.Context, entityID string) ([]*domain.Chunk, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	chunks := s.m.chunks[entityID]
	out := make([]*domain.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = cloneChunk(c)
	}
	return out, nil
}

func (s *MockChunkStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, chunks := range s.m.chunks {
		for _, c := range chunks {
			if c.ID == id {
				c.Embedding = append([]float32(nil), embedding...)
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (s *MockChunkStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	ids := make([]string, 0, len(s.m.chunks))
	for id := range s.m.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*domain.Chunk
	for _, id := range ids {
		for _, c := range s.m.chunks[id] {
			if c.Embedding != nil {
				continue
			}
			out = append(out, cloneChunk(c))
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *MockChunkStore) Search(ctx context.Context, query []float32, filters domain.ChunkFilters, limit int) ([]*domain.RankedChunk, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	type hit struct {
		rc      *domain.RankedChunk
		updated time.Time
	}
	var hits []hit
	for entityID, chunks := range s.m.chunks {
		updated := s.m.entities[entityID].UpdatedAt
		for _, c := range chunks {
			if c.Embedding == nil || !filters.MatchChunk(c) {
				continue
			}
			hits = append(hits, hit{
				rc:      &domain.RankedChunk{Chunk: cloneChunk(c), Score: domain.RawSimilarity(query, c.Embedding)},
				updated: updated,
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		return domain.RankBefore(a.rc.Score, a.updated, a.rc.Chunk.ID, b.rc.Score, b.updated, b.rc.Chunk.ID)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*domain.RankedChunk, len(hits))
	for i, h := range hits {
		out[i] = h.rc
	}
	return out, nil
}

func cloneEntity(e *domain.Entity) *domain.Entity {
	c := *e
	c.Embedding = append([]float32(nil), e.Embedding...)
	return &c
}

func cloneChunk(ch *domain.Chunk) *domain.Chunk {
	c := *ch
	c.HeadingPath = append([]string(nil), ch.HeadingPath...)
	c.Embedding = append([]float32(nil), ch.Embedding...)
	return &c
}
