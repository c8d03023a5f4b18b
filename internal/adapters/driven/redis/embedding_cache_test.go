package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "text-embedding-3-small", "hybrid search")
	require.NoError(t, err)
	assert.False(t, ok)

	vec := []float32{0.25, -1.5, 0, 3.75}
	require.NoError(t, cache.Set(ctx, "text-embedding-3-small", "hybrid search", vec))

	got, ok, err := cache.Get(ctx, "text-embedding-3-small", "hybrid search")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, vec, got)

	key := embeddingKey("text-embedding-3-small", "hybrid search")
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestEmbeddingCache_KeyedByModel(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewEmbeddingCache(client, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "small", "q", []float32{1}))

	_, ok, err := cache.Get(ctx, "large", "q")
	require.NoError(t, err)
	assert.False(t, ok, "another model's vector must not be served")
	assert.Equal(t, DefaultEmbeddingCacheTTL, cache.ttl)
}

func TestEmbeddingCache_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "m", "q", []float32{1, 2}))
	mr.FastForward(2 * time.Second)

	_, ok, err := cache.Get(ctx, "m", "q")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbeddingCache_CorruptValue(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Minute)

	require.NoError(t, mr.Set(embeddingKey("m", "q"), "abc"))

	_, _, err := cache.Get(context.Background(), "m", "q")
	assert.Error(t, err)
}

func TestEmbeddingCache_ServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Minute)
	mr.Close()

	_, _, err := cache.Get(context.Background(), "m", "q")
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "m", "q", []float32{1}))
}
