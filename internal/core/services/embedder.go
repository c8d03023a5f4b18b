package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// EmbedderConfig configures batching, retry and concurrency for embedding
// calls.
type EmbedderConfig struct {
	// BatchSize is the number of texts per Embed call
	BatchSize int

	// Concurrency caps in-flight Embed calls across all callers
	Concurrency int

	// MaxAttempts bounds attempts per call, including the first
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Logger *slog.Logger
}

// DefaultEmbedderConfig returns sensible defaults.
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		BatchSize:      16,
		Concurrency:    4,
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// BatchEmbedder wraps an EmbeddingService with batching, bounded
// concurrency and retry with backoff. A batch that still fails is retried
// text by text so one bad input cannot take its siblings down with it.
type BatchEmbedder struct {
	cfg    EmbedderConfig
	pool   *ants.Pool
	logger *slog.Logger
}

// NewBatchEmbedder creates a BatchEmbedder. Zero config fields take defaults.
func NewBatchEmbedder(cfg EmbedderConfig) (*BatchEmbedder, error) {
	def := DefaultEmbedderConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	return &BatchEmbedder{cfg: cfg, pool: pool, logger: logger}, nil
}

// Close releases the worker pool
func (b *BatchEmbedder) Close() {
	b.pool.Release()
}

// EmbedAll embeds texts in input order. Entries that could not be embedded
// are nil in the result and carry a non-nil error at the same index.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, svc driven.EmbeddingService, texts []string) ([][]float32, []error) {
	vecs := make([][]float32, len(texts))
	errs := make([]error, len(texts))
	if len(texts) == 0 {
		return vecs, errs
	}
	if svc == nil {
		for i := range errs {
			errs[i] = fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
		}
		return vecs, errs
	}

	var wg sync.WaitGroup
	for start := 0; start < len(texts); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(texts))
		wg.Add(1)
		task := func() {
			defer wg.Done()
			b.embedRange(ctx, svc, texts, vecs, errs, start, end)
		}
		if err := b.pool.Submit(task); err != nil {
			wg.Done()
			for i := start; i < end; i++ {
				errs[i] = fmt.Errorf("%w: submit embedding task: %w", domain.ErrCollaborator, err)
			}
		}
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		b.logger.Warn("embedding incomplete", "texts", len(texts), "failed", failed, "model", svc.Model())
	}
	return vecs, errs
}

func (b *BatchEmbedder) embedRange(ctx context.Context, svc driven.EmbeddingService, texts []string, vecs [][]float32, errs []error, start, end int) {
	out, err := b.embedWithRetry(ctx, svc, texts[start:end])
	if err == nil {
		copy(vecs[start:end], out)
		return
	}
	if end-start == 1 || ctx.Err() != nil {
		for i := start; i < end; i++ {
			errs[i] = err
		}
		return
	}

	for i := start; i < end; i++ {
		single, err := b.embedWithRetry(ctx, svc, texts[i:i+1])
		if err != nil {
			errs[i] = err
			continue
		}
		vecs[i] = single[0]
	}
}

// embedWithRetry calls svc.Embed with exponential backoff. Timeouts and
// transport failures are retried; invalid input and cancellation are not.
func (b *BatchEmbedder) embedWithRetry(ctx context.Context, svc driven.EmbeddingService, texts []string) ([][]float32, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = b.cfg.InitialBackoff
	exp.MaxInterval = b.cfg.MaxBackoff
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(b.cfg.MaxAttempts-1)), ctx)

	var out [][]float32
	err := backoff.Retry(func() error {
		vecs, err := svc.Embed(ctx, texts)
		if err != nil {
			wrapped := fmt.Errorf("%w: embed %d texts: %w", domain.ErrCollaborator, len(texts), err)
			if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrValidation) {
				return backoff.Permanent(wrapped)
			}
			return wrapped
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("%w: embed returned %d vectors for %d texts", domain.ErrCollaborator, len(vecs), len(texts))
		}
		if dim := svc.Dimensions(); dim > 0 {
			for _, v := range vecs {
				if len(v) != dim {
					return backoff.Permanent(fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(v), dim))
				}
			}
		}
		out = vecs
		return nil
	}, policy)
	if err != nil && ctx.Err() != nil && !errors.Is(err, domain.ErrCollaborator) {
		err = fmt.Errorf("%w: %w", domain.ErrCollaborator, err)
	}
	return out, err
}
