package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

var _ driven.LockBackend = (*Lock)(nil)

// DefaultLockPrefix namespaces lock keys
const DefaultLockPrefix = "sercha-kb:lock:"

// Lock is a LockBackend over SET NX PX. The stored value is a token unique
// to this Lock, and Unlock and Refresh act only when the key still holds
// it, so an expired holder cannot drop a successor's lock.
type Lock struct {
	client redis.UniversalClient
	prefix string
	token  string
}

// LockOption configures a Lock
type LockOption func(*Lock)

// WithLockPrefix overrides the key prefix
func WithLockPrefix(prefix string) LockOption {
	return func(l *Lock) { l.prefix = prefix }
}

// NewLock creates a Lock with a fresh holder token
func NewLock(client redis.UniversalClient, opts ...LockOption) *Lock {
	hostname, _ := os.Hostname()
	l := &Lock{
		client: client,
		prefix: DefaultLockPrefix,
		token:  fmt.Sprintf("%s/%d/%s", hostname, os.Getpid(), uuid.NewString()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryLock sets key to this holder's token unless it exists
func (l *Lock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	return ok, nil
}

// compareAndDelete and compareAndExpire act only on keys holding ARGV[1]
var (
	compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then return 0 end
return redis.call("DEL", KEYS[1])`)

	compareAndExpire = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then return 0 end
return redis.call("PEXPIRE", KEYS[1], ARGV[2])`)
)

func (l *Lock) Unlock(ctx context.Context, key string) error {
	err := compareAndDelete.Run(ctx, l.client, []string{l.prefix + key}, l.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis unlock %s: %w", key, err)
	}
	return nil
}

// Refresh fails when the key expired or passed to another holder
func (l *Lock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	n, err := compareAndExpire.Run(ctx, l.client, []string{l.prefix + key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis refresh %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("redis refresh %s: lock lost", key)
	}
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Token returns the value this Lock writes into held keys
func (l *Lock) Token() string {
	return l.token
}
