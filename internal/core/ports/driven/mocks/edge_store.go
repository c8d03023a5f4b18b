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
var _ driven.EdgeStore = (*MockEdgeStore)(nil)

// MockEdgeStore is an in-memory EdgeStore. Entity endpoints are checked
// against the given entity store.
type MockEdgeStore struct {
	mu        sync.RWMutex
	entities  driven.EntityStore
	edges     map[string]*domain.Edge
	decisions map[domain.ClaimKey]*domain.ClaimDecision
}

// NewMockEdgeStore creates a new MockEdgeStore
func NewMockEdgeStore(entities driven.EntityStore) *MockEdgeStore {
	return &MockEdgeStore{
		entities:  entities,
		edges:     make(map[string]*domain.Edge),
		decisions: make(map[domain.ClaimKey]*domain.ClaimDecision),
	}
}

func (m *MockEdgeStore) Commit(ctx context.Context, edge *domain.Edge, decision *domain.ClaimDecision) (*domain.Edge, error) {
	if err := edge.Validate(); err != nil {
		return nil, err
	}
	for _, ep := range []struct {
		t  domain.EndpointType
		id string
	}{{edge.SrcType, edge.SrcID}, {edge.DstType, edge.DstID}} {
		if ep.t != domain.EndpointEntity {
			continue
		}
		if _, err := m.entities.Get(ctx, ep.id); err != nil {
			return nil, fmt.Errorf("%w: entity %s", domain.ErrDanglingEndpoint, ep.id)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if decision != nil {
		if prev, ok := m.decisions[decision.Key]; ok && prev.Status == domain.ClaimRejected {
			return nil, fmt.Errorf("%w: %s was rejected", domain.ErrClaimDecided, decision.Key)
		}
	}

	now := time.Now()
	var stored *domain.Edge
	for _, e := range m.edges {
		if e.SameIdentity(edge) {
			stored = e
			break
		}
	}
	if stored == nil {
		c := *edge
		if c.ID == "" {
			c.ID = domain.GenerateID()
		}
		c.CreatedAt, c.UpdatedAt = now, now
		stored = &c
		m.edges[c.ID] = stored
	} else {
		if stored.Metadata == nil {
			stored.Metadata = make(map[string]any)
		}
		for k, v := range edge.Metadata {
			stored.Metadata[k] = v
		}
		stored.UpdatedAt = now
	}

	if decision != nil {
		d := *decision
		d.EdgeID = stored.ID
		m.decisions[d.Key] = &d
	}
	out := *stored
	return &out, nil
}

func (m *MockEdgeStore) Reject(ctx context.Context, decision *domain.ClaimDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.decisions[decision.Key]; ok {
		return fmt.Errorf("%w: %s is %s", domain.ErrClaimDecided, decision.Key, prev.Status)
	}
	d := *decision
	m.decisions[d.Key] = &d
	return nil
}

func (m *MockEdgeStore) Decision(ctx context.Context, key domain.ClaimKey) (*domain.ClaimDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.decisions[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (m *MockEdgeStore) Decisions(ctx context.Context) ([]*domain.ClaimDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.ClaimDecision, 0, len(m.decisions))
	for _, d := range m.decisions {
		c := *d
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, nil
}

func (m *MockEdgeStore) Get(ctx context.Context, id string) (*domain.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (m *MockEdgeStore) ListForEndpoint(ctx context.Context, endpointType domain.EndpointType, id string) ([]*domain.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Edge
	for _, e := range m.edges {
		if (e.SrcType == endpointType && e.SrcID == id) || (e.DstType == endpointType && e.DstID == id) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockEdgeStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.edges, id)
	return nil
}

// Count returns the number of committed edges (for test assertions)
func (m *MockEdgeStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges)
}
