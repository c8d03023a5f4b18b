package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

var _ driven.LockBackend = (*AdvisoryLock)(nil)

// AdvisoryLock is a LockBackend over session advisory locks, used when no
// Redis is configured. Each held key pins a pooled connection until
// Unlock. Keys never expire: the TTL is ignored and a crashed holder's
// locks go with its connections.
type AdvisoryLock struct {
	db *DB

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

// NewAdvisoryLock creates an AdvisoryLock over db
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db, conns: make(map[string]*sql.Conn)}
}

// advisoryKey maps a lock key onto the bigint advisory lock space
func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("sercha-kb:lock:" + key))
	return int64(h.Sum64())
}

func (l *AdvisoryLock) TryLock(ctx context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.conns[key]; held {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: advisory lock connection: %w", domain.ErrServiceUnavailable, err)
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, advisoryKey(key)).Scan(&ok); err != nil {
		conn.Close()
		return false, mapError(err)
	}
	if !ok {
		conn.Close()
		return false, nil
	}
	l.conns[key] = conn
	return true, nil
}

func (l *AdvisoryLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	conn, held := l.conns[key]
	delete(l.conns, key)
	l.mu.Unlock()
	if !held {
		return nil
	}
	defer conn.Close()

	var released bool
	return conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, advisoryKey(key)).Scan(&released)
}

// Refresh checks the pinned connection is still alive
func (l *AdvisoryLock) Refresh(ctx context.Context, key string, _ time.Duration) error {
	l.mu.Lock()
	conn, held := l.conns[key]
	l.mu.Unlock()
	if !held {
		return fmt.Errorf("advisory lock %s not held", key)
	}
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("advisory lock %s: %w", key, err)
	}
	return nil
}

func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
