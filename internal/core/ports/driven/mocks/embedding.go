package mocks

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

// MockEmbeddingService embeds text as a hashed bag of words, so texts that
// share words are similar. Output is deterministic.
type MockEmbeddingService struct {
	dimensions int
	model      string

	// FailFn, when set, is consulted before each Embed call
	FailFn func(texts []string) error

	// Delay is slept inside every Embed call
	Delay time.Duration

	calls    atomic.Int64
	inflight atomic.Int64
	peakMu   sync.Mutex
	peak     int64
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 256,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	cur := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	m.peakMu.Lock()
	if cur > m.peak {
		m.peak = cur
	}
	m.peakMu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.FailFn != nil {
		if err := m.FailFn(texts); err != nil {
			return nil, err
		}
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.Vector(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := m.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// Vector returns the embedding for text. Words are lowercased and a
// trailing plural "s" is dropped before hashing.
func (m *MockEmbeddingService) Vector(text string) []float32 {
	vec := make([]float32, m.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			w = strings.TrimSuffix(w, "s")
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(m.dimensions)] += 1
	}
	return vec
}

// Helper methods for testing

// Calls returns the number of Embed calls
func (m *MockEmbeddingService) Calls() int {
	return int(m.calls.Load())
}

// PeakConcurrency returns the highest number of concurrent Embed calls seen
func (m *MockEmbeddingService) PeakConcurrency() int {
	m.peakMu.Lock()
	defer m.peakMu.Unlock()
	return int(m.peak)
}

func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.dimensions = dim
}
