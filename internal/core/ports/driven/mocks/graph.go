package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExplorationGraph = (*MockExplorationGraph)(nil)

// MockExplorationGraph is an in-memory ExplorationGraph
type MockExplorationGraph struct {
	mu        sync.RWMutex
	nodes     map[string]domain.GraphNode
	relations map[domain.ClaimKey]*domain.ProposedRelation

	PingFn       func() error
	UpsertNodeFn func(node domain.GraphNode) error
}

// NewMockExplorationGraph creates a new MockExplorationGraph
func NewMockExplorationGraph() *MockExplorationGraph {
	return &MockExplorationGraph{
		nodes:     make(map[string]domain.GraphNode),
		relations: make(map[domain.ClaimKey]*domain.ProposedRelation),
	}
}

func (m *MockExplorationGraph) UpsertNode(ctx context.Context, node domain.GraphNode) error {
	if m.UpsertNodeFn != nil {
		if err := m.UpsertNodeFn(node); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.nodes[node.ID]; ok && node.Title == "" {
		node.Title = prev.Title
	}
	m.nodes[node.ID] = node
	return nil
}

func (m *MockExplorationGraph) UpsertRelation(ctx context.Context, rel domain.ProposedRelation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.relations[rel.Key]
	r := rel
	m.relations[rel.Key] = &r
	return !exists, nil
}

func (m *MockExplorationGraph) Relation(ctx context.Context, key domain.ClaimKey) (*domain.ProposedRelation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.relations[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (m *MockExplorationGraph) Relations(ctx context.Context, status domain.ClaimStatus) ([]*domain.ProposedRelation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ProposedRelation
	for _, r := range m.relations {
		if status == "" || r.Status == status {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, nil
}

func (m *MockExplorationGraph) SetStatus(ctx context.Context, key domain.ClaimKey, status domain.ClaimStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.relations[key]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *MockExplorationGraph) Neighbors(ctx context.Context, nodeID string) ([]domain.Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Neighbor
	for _, r := range m.relations {
		switch nodeID {
		case r.Key.Source:
			out = append(out, domain.Neighbor{Node: m.node(r.Key.Target), Predicate: r.Key.Predicate, Direction: "outgoing", Strength: r.Strength, Status: r.Status})
		case r.Key.Target:
			out = append(out, domain.Neighbor{Node: m.node(r.Key.Source), Predicate: r.Key.Predicate, Direction: "incoming", Strength: r.Strength, Status: r.Status})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction > out[j].Direction
		}
		return out[i].Node.ID+out[i].Predicate < out[j].Node.ID+out[j].Predicate
	})
	return out, nil
}

func (m *MockExplorationGraph) node(id string) domain.GraphNode {
	if n, ok := m.nodes[id]; ok {
		return n
	}
	return domain.GraphNode{ID: id, Label: "concept"}
}

func (m *MockExplorationGraph) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[string]domain.GraphNode)
	m.relations = make(map[domain.ClaimKey]*domain.ProposedRelation)
	return nil
}

func (m *MockExplorationGraph) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Counts returns node and relation counts (for test assertions)
func (m *MockExplorationGraph) Counts() (nodes, relations int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), len(m.relations)
}
