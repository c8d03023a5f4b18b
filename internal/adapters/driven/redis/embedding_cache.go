package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingCache = (*EmbeddingCache)(nil)

const (
	embeddingCachePrefix     = "sercha-kb:qemb:"
	DefaultEmbeddingCacheTTL = time.Hour
)

// EmbeddingCache stores query vectors in Redis. Values are packed
// little-endian float32s; keys hash the text so arbitrary queries stay short.
type EmbeddingCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewEmbeddingCache creates a cache. A non-positive ttl uses DefaultEmbeddingCacheTTL.
func NewEmbeddingCache(client redis.UniversalClient, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingCacheTTL
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

func embeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingCachePrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for model and text
func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, embeddingKey(model, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached embedding: %w", err)
	}
	vec, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set stores the vector for model and text
func (c *EmbeddingCache) Set(ctx context.Context, model, text string, embedding []float32) error {
	if err := c.client.Set(ctx, embeddingKey(model, text), encodeVector(embedding), c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached embedding: %w", err)
	}
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("cached embedding has %d bytes, not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}
