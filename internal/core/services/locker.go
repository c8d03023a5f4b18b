package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// EntityLocker serializes work on one entity identifier. Writers inside
// this process queue on a keyed semaphore. With a LockBackend the same
// key is also held across processes, and refreshed every half TTL until
// released.
type EntityLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot

	backend driven.LockBackend
	ttl     time.Duration
	retry   time.Duration
	logger  *slog.Logger
}

type lockSlot struct {
	sem  chan struct{}
	refs int
}

// EntityLockerConfig configures an EntityLocker
type EntityLockerConfig struct {
	// Backend is optional
	Backend driven.LockBackend

	// TTL bounds how long a crashed holder can block others
	TTL time.Duration

	// RetryInterval is the pause between TryLock attempts
	RetryInterval time.Duration

	Logger *slog.Logger
}

// NewEntityLocker creates an EntityLocker
func NewEntityLocker(cfg EntityLockerConfig) *EntityLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityLocker{
		slots:   make(map[string]*lockSlot),
		backend: cfg.Backend,
		ttl:     cfg.TTL,
		retry:   cfg.RetryInterval,
		logger:  logger,
	}
}

// Lock blocks until the entity is held or ctx is done. The returned
// function releases it; calls after the first do nothing.
func (l *EntityLocker) Lock(ctx context.Context, entityID string) (func(), error) {
	slot := l.slot(entityID)
	select {
	case slot.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(entityID)
		return nil, ctx.Err()
	}

	stop := func() {}
	if l.backend != nil {
		if err := l.take(ctx, entityID); err != nil {
			<-slot.sem
			l.drop(entityID)
			return nil, err
		}
		stop = l.keepAlive(entityID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			if l.backend != nil {
				if err := l.backend.Unlock(context.Background(), lockKey(entityID)); err != nil {
					l.logger.Warn("entity unlock failed", "entity_id", entityID, "error", err)
				}
			}
			<-slot.sem
			l.drop(entityID)
		})
	}, nil
}

func (l *EntityLocker) take(ctx context.Context, entityID string) error {
	key := lockKey(entityID)
	for {
		ok, err := l.backend.TryLock(ctx, key, l.ttl)
		if err != nil {
			return fmt.Errorf("%w: lock %s: %w", domain.ErrServiceUnavailable, key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// keepAlive refreshes the backend key until the returned stop is called.
// A failed refresh is logged; the holder keeps working and the key may
// lapse.
func (l *EntityLocker) keepAlive(entityID string) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(max(l.ttl/2, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := l.backend.Refresh(context.Background(), lockKey(entityID), l.ttl); err != nil {
					l.logger.Warn("entity lock refresh failed", "entity_id", entityID, "error", err)
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (l *EntityLocker) slot(entityID string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[entityID]
	if !ok {
		s = &lockSlot{sem: make(chan struct{}, 1)}
		l.slots[entityID] = s
	}
	s.refs++
	return s
}

func (l *EntityLocker) drop(entityID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[entityID]; ok {
		s.refs--
		if s.refs == 0 {
			delete(l.slots, entityID)
		}
	}
}

func lockKey(entityID string) string {
	return "entity:" + entityID
}
