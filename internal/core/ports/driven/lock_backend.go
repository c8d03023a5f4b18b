package driven

import (
	"context"
	"time"
)

// LockBackend holds named locks shared by every process writing to the
// same stores. Entity ingestion takes one lock per entity identifier.
//
// Locks expire after their TTL so a crashed holder cannot block an entity
// for good; a holder working longer than the TTL calls Refresh.
type LockBackend interface {
	// TryLock takes key without waiting. It reports false when another
	// holder has it, including this same backend instance.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Unlock drops key if this instance holds it. Unheld keys are ignored.
	Unlock(ctx context.Context, key string) error

	// Refresh pushes the expiry of a held key out to ttl from now.
	// Backends without expiry only confirm the key is still held.
	Refresh(ctx context.Context, key string, ttl time.Duration) error

	Ping(ctx context.Context) error
}
