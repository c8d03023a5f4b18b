package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven/mocks"
)

func newTestEmbedder(t *testing.T, batch, concurrency int) *BatchEmbedder {
	t.Helper()
	b, err := NewBatchEmbedder(EmbedderConfig{
		BatchSize:      batch,
		Concurrency:    concurrency,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func TestBatchEmbedder_PreservesOrder(t *testing.T) {
	svc := mocks.NewMockEmbeddingService()
	b := newTestEmbedder(t, 8, 3)

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("passage number %d about topic %d", i, i*7)
	}

	vecs, errs := b.EmbedAll(context.Background(), svc, texts)
	require.Len(t, vecs, len(texts))
	for i := range texts {
		require.NoError(t, errs[i])
		assert.Equal(t, svc.Vector(texts[i]), vecs[i], "vector %d out of order", i)
	}
	assert.Equal(t, 3, svc.Calls(), "20 texts in batches of 8")
}

func TestBatchEmbedder_Empty(t *testing.T) {
	svc := mocks.NewMockEmbeddingService()
	b := newTestEmbedder(t, 8, 2)

	vecs, errs := b.EmbedAll(context.Background(), svc, nil)
	assert.Empty(t, vecs)
	assert.Empty(t, errs)
	assert.Zero(t, svc.Calls())
}

func TestBatchEmbedder_IsolatesFailures(t *testing.T) {
	svc := mocks.NewMockEmbeddingService()
	svc.FailFn = func(texts []string) error {
		for _, text := range texts {
			if text == "poison" {
				return fmt.Errorf("upstream: %w", context.DeadlineExceeded)
			}
		}
		return nil
	}
	b := newTestEmbedder(t, 8, 2)

	vecs, errs := b.EmbedAll(context.Background(), svc, []string{"alpha", "poison", "beta"})

	require.NoError(t, errs[0])
	require.NoError(t, errs[2])
	assert.NotNil(t, vecs[0])
	assert.NotNil(t, vecs[2])

	assert.Nil(t, vecs[1])
	require.Error(t, errs[1])
	assert.ErrorIs(t, errs[1], domain.ErrCollaborator)
	assert.ErrorIs(t, errs[1], context.DeadlineExceeded)
	assert.True(t, domain.IsRetryable(errs[1]), "timeouts stay retryable")
}

func TestBatchEmbedder_RetriesTransientFailures(t *testing.T) {
	svc := mocks.NewMockEmbeddingService()
	var failures atomic.Int32
	svc.FailFn = func(texts []string) error {
		if failures.Add(1) <= 2 {
			return errors.New("connection reset")
		}
		return nil
	}
	b := newTestEmbedder(t, 8, 1)

	vecs, errs := b.EmbedAll(context.Background(), svc, []string{"one", "two"})
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotNil(t, vecs[0])
	assert.Equal(t, 3, svc.Calls())
}

func TestBatchEmbedder_DoesNotRetryInvalidInput(t *testing.T) {
	svc := mocks.NewMockEmbeddingService()
	svc.FailFn = func(texts []string) error {
		return fmt.Errorf("input too long: %w", domain.ErrInvalidInput)
	}
	b := newTestEmbedder(t, 8, 1)

	_, errs := b.EmbedAll(context.Background(), svc, []string{"too long"})
	require.Error(t, errs[0])
	assert.ErrorIs(t, errs[0], domain.ErrInvalidInput)
	assert.Equal(t, 1, svc.Calls())
}

func TestBatchEmbedder_ConcurrencyCap(t *testing.T) {
	svc := mocks.NewMockEmbeddingService()
	svc.Delay = 5 * time.Millisecond
	b := newTestEmbedder(t, 1, 2)

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}
	_, errs := b.EmbedAll(context.Background(), svc, texts)
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, svc.PeakConcurrency(), 2)
	assert.Equal(t, 10, svc.Calls())
}

func TestBatchEmbedder_NoService(t *testing.T) {
	b := newTestEmbedder(t, 8, 1)

	vecs, errs := b.EmbedAll(context.Background(), nil, []string{"a", "b"})
	assert.Nil(t, vecs[0])
	assert.ErrorIs(t, errs[0], domain.ErrServiceUnavailable)
	assert.ErrorIs(t, errs[1], domain.ErrServiceUnavailable)
}

// shortEmbedder returns vectors one element shorter than it advertises
type shortEmbedder struct {
	*mocks.MockEmbeddingService
}

func (s shortEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.Dimensions()-1)
	}
	return out, nil
}

func TestBatchEmbedder_DimensionMismatch(t *testing.T) {
	b := newTestEmbedder(t, 8, 1)

	_, errs := b.EmbedAll(context.Background(), shortEmbedder{mocks.NewMockEmbeddingService()}, []string{"a"})
	require.Error(t, errs[0])
	assert.ErrorIs(t, errs[0], domain.ErrDimensionMismatch)
	assert.False(t, domain.IsRetryable(errs[0]))
}
