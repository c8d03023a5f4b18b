package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingCache = (*MockEmbeddingCache)(nil)

// MockEmbeddingCache is an in-memory EmbeddingCache
type MockEmbeddingCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	Hits    int
}

// NewMockEmbeddingCache creates a new MockEmbeddingCache
func NewMockEmbeddingCache() *MockEmbeddingCache {
	return &MockEmbeddingCache{entries: make(map[string][]float32)}
}

func (m *MockEmbeddingCache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[model+"\x00"+text]
	if ok {
		m.Hits++
	}
	return v, ok, nil
}

func (m *MockEmbeddingCache) Set(ctx context.Context, model, text string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[model+"\x00"+text] = embedding
	return nil
}
