package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

var _ driven.LockBackend = (*MockLockBackend)(nil)

// MockLockBackend keeps expiring keys in memory
type MockLockBackend struct {
	mu      sync.Mutex
	expires map[string]time.Time

	taken     int
	refused   int
	refreshes int

	// TryLockFn replaces the in-memory behaviour when set
	TryLockFn func(key string, ttl time.Duration) (bool, error)
}

// NewMockLockBackend creates an empty MockLockBackend
func NewMockLockBackend() *MockLockBackend {
	return &MockLockBackend{expires: make(map[string]time.Time)}
}

func (m *MockLockBackend) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.TryLockFn != nil {
		return m.TryLockFn(key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if until, ok := m.expires[key]; ok && time.Now().Before(until) {
		m.refused++
		return false, nil
	}
	m.expires[key] = time.Now().Add(ttl)
	m.taken++
	return true, nil
}

func (m *MockLockBackend) Unlock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, key)
	return nil
}

func (m *MockLockBackend) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.expires[key]
	if !ok || time.Now().After(until) {
		return fmt.Errorf("lock %s expired", key)
	}
	m.expires[key] = time.Now().Add(ttl)
	m.refreshes++
	return nil
}

func (m *MockLockBackend) Ping(ctx context.Context) error { return nil }

// Held reports whether key is currently taken
func (m *MockLockBackend) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.expires[key]
	return ok && time.Now().Before(until)
}

// Counts returns how many TryLock calls succeeded and were refused, and
// how many refreshes went through
func (m *MockLockBackend) Counts() (taken, refused, refreshes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taken, m.refused, m.refreshes
}
