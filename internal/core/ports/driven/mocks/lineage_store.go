package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.EpisodeStore = (*MockLineageStore)(nil)
	_ driven.RunStore     = (*MockRunStore)(nil)
)

// MockLineageStore is an in-memory append-only episode log
type MockLineageStore struct {
	mu       sync.RWMutex
	episodes []*domain.Episode
	ids      map[string]bool

	// AppendErr, when set, fails every append
	AppendErr error
}

// NewMockLineageStore creates a new MockLineageStore
func NewMockLineageStore() *MockLineageStore {
	return &MockLineageStore{ids: make(map[string]bool)}
}

func (m *MockLineageStore) Append(ctx context.Context, episode *domain.Episode) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[episode.ID] {
		return fmt.Errorf("episode %s: %w", episode.ID, domain.ErrAlreadyExists)
	}
	c := *episode
	m.episodes = append(m.episodes, &c)
	m.ids[episode.ID] = true
	return nil
}

func (m *MockLineageStore) ListByTarget(ctx context.Context, targetID string) ([]*domain.Episode, error) {
	return m.filter(func(e *domain.Episode) bool { return e.TargetID == targetID }), nil
}

func (m *MockLineageStore) ListByRun(ctx context.Context, runID string) ([]*domain.Episode, error) {
	return m.filter(func(e *domain.Episode) bool { return e.RunID == runID }), nil
}

// All returns every episode in append order (for test assertions)
func (m *MockLineageStore) All() []*domain.Episode {
	return m.filter(func(*domain.Episode) bool { return true })
}

func (m *MockLineageStore) filter(keep func(*domain.Episode) bool) []*domain.Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Episode
	for _, e := range m.episodes {
		if keep(e) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MockRunStore is an in-memory RunStore
type MockRunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.Run
}

// NewMockRunStore creates a new MockRunStore
func NewMockRunStore() *MockRunStore {
	return &MockRunStore{runs: make(map[string]*domain.Run)}
}

func (m *MockRunStore) Create(ctx context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; ok {
		return domain.ErrAlreadyExists
	}
	c := *run
	m.runs[run.ID] = &c
	return nil
}

func (m *MockRunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *MockRunStore) Finish(ctx context.Context, id string, status domain.RunStatus, metrics domain.RunMetrics, errMsg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.Status != domain.RunRunning {
		return fmt.Errorf("%w: run %s is %s", domain.ErrRunFinished, id, r.Status)
	}
	r.Status = status
	r.Metrics = metrics
	r.ErrorMessage = errMsg
	r.CompletedAt = &at
	return nil
}
