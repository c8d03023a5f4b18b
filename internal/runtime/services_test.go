package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven/mocks"
)

// trackedEmbedding records Close and fails HealthCheck on demand
type trackedEmbedding struct {
	*mocks.MockEmbeddingService
	closed    bool
	healthErr error
}

func newTrackedEmbedding(dims int) *trackedEmbedding {
	m := mocks.NewMockEmbeddingService()
	m.SetDimensions(dims)
	return &trackedEmbedding{MockEmbeddingService: m}
}

func (e *trackedEmbedding) Close() error {
	e.closed = true
	return nil
}

func (e *trackedEmbedding) HealthCheck(ctx context.Context) error { return e.healthErr }

type trackedClassifier struct {
	mocks.MockClassifier
	pingErr error
	closed  bool
}

func (c *trackedClassifier) Ping(ctx context.Context) error { return c.pingErr }

func (c *trackedClassifier) Close() error {
	c.closed = true
	return nil
}

func newServices(opts ...Option) *Services {
	return NewServices(domain.NewRuntimeConfig("postgres", "local"), opts...)
}

func TestNewServices(t *testing.T) {
	cfg := domain.NewRuntimeConfig("neo4j", "redis")
	s := NewServices(cfg)

	assert.Same(t, cfg, s.Config())
	assert.Nil(t, s.EmbeddingService())
	assert.Nil(t, s.Classifier())
}

func TestServices_SetEmbeddingService(t *testing.T) {
	s := newServices()
	first := newTrackedEmbedding(256)

	s.SetEmbeddingService(first)
	assert.Same(t, first, s.EmbeddingService())
	assert.True(t, s.Config().EmbeddingAvailable())

	s.SetEmbeddingService(first)
	assert.False(t, first.closed, "reinstalling the same service keeps it open")

	second := newTrackedEmbedding(256)
	s.SetEmbeddingService(second)
	assert.True(t, first.closed, "the replaced service is closed")

	s.SetEmbeddingService(nil)
	assert.True(t, second.closed)
	assert.False(t, s.Config().EmbeddingAvailable())
	assert.False(t, s.Config().CanSearch())
}

func TestServices_ConnectEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("unhealthy", func(t *testing.T) {
		s := newServices()
		bad := newTrackedEmbedding(256)
		bad.healthErr = domain.ErrServiceUnavailable

		err := s.ConnectEmbedding(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
		assert.True(t, domain.IsRetryable(err))
		assert.True(t, bad.closed)
		assert.Nil(t, s.EmbeddingService())
	})

	t.Run("dimension mismatch keeps current service", func(t *testing.T) {
		s := newServices(WithDimensions(1536))
		current := newTrackedEmbedding(1536)
		require.NoError(t, s.ConnectEmbedding(ctx, current))

		wrong := newTrackedEmbedding(3072)
		err := s.ConnectEmbedding(ctx, wrong)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.True(t, wrong.closed)
		assert.Same(t, current, s.EmbeddingService())
		assert.False(t, current.closed)
	})

	t.Run("no dimension check", func(t *testing.T) {
		s := newServices()
		require.NoError(t, s.ConnectEmbedding(ctx, newTrackedEmbedding(8)))
		assert.True(t, s.Config().CanSearch())
	})

	t.Run("nil clears", func(t *testing.T) {
		s := newServices()
		svc := newTrackedEmbedding(256)
		s.SetEmbeddingService(svc)

		require.NoError(t, s.ConnectEmbedding(ctx, nil))
		assert.True(t, svc.closed)
		assert.Nil(t, s.EmbeddingService())
	})
}

func TestServices_ConnectClassifier(t *testing.T) {
	ctx := context.Background()
	s := newServices()

	bad := &trackedClassifier{pingErr: errors.New("connection refused")}
	assert.Error(t, s.ConnectClassifier(ctx, bad))
	assert.True(t, bad.closed)
	assert.False(t, s.Config().ClassifierAvailable())

	good := &trackedClassifier{}
	require.NoError(t, s.ConnectClassifier(ctx, good))
	assert.True(t, s.Config().ClassifierAvailable())

	require.NoError(t, s.ConnectClassifier(ctx, nil))
	assert.True(t, good.closed)
	assert.Nil(t, s.Classifier())
}

func TestServices_Close(t *testing.T) {
	s := newServices()
	svc := newTrackedEmbedding(256)
	cls := &trackedClassifier{}
	s.SetEmbeddingService(svc)
	s.SetClassifier(cls)

	require.NoError(t, s.Close())
	assert.True(t, svc.closed)
	assert.True(t, cls.closed)
	assert.False(t, s.Config().EmbeddingAvailable())
	assert.False(t, s.Config().ClassifierAvailable())
	assert.NoError(t, s.Close(), "closing twice is harmless")
}
