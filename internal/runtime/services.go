// Package runtime holds the collaborators the pipeline may run without:
// the embedding service and the classifier. Either can be swapped while
// requests are in flight.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Services holds the current collaborators. A nil embedding service leaves
// new vectors pending; a nil classifier leaves metadata to the document.
type Services struct {
	mu sync.RWMutex

	config *domain.RuntimeConfig

	// dimensions is the vector size the stores hold. Zero skips the check.
	dimensions int

	embedding  driven.EmbeddingService
	classifier driven.Classifier
}

// Option configures Services
type Option func(*Services)

// WithDimensions rejects embedding services producing other vector sizes
func WithDimensions(n int) Option {
	return func(s *Services) { s.dimensions = n }
}

// NewServices creates an empty holder reporting availability through config
func NewServices(config *domain.RuntimeConfig, opts ...Option) *Services {
	s := &Services{config: config}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the availability flags
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service, or nil
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedding
}

// Classifier returns the current classifier, or nil
func (s *Services) Classifier() driven.Classifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classifier
}

// SetEmbeddingService installs svc without checks and closes the one it
// replaces
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	prev := s.embedding
	s.embedding = svc
	s.config.SetEmbeddingAvailable(svc != nil)
	s.mu.Unlock()

	if prev != nil && prev != svc {
		_ = prev.Close()
	}
}

// SetClassifier installs c without checks and closes the one it replaces
func (s *Services) SetClassifier(c driven.Classifier) {
	s.mu.Lock()
	prev := s.classifier
	s.classifier = c
	s.config.SetClassifierAvailable(c != nil)
	s.mu.Unlock()

	if prev != nil && prev != c {
		_ = prev.Close()
	}
}

// ConnectEmbedding installs svc once its vector size matches the stores
// and it answers a health check. A rejected svc is closed and the current
// service stays in place. A nil svc clears the slot.
func (s *Services) ConnectEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}
	if s.dimensions > 0 && svc.Dimensions() != s.dimensions {
		_ = svc.Close()
		return fmt.Errorf("%w: %s produces %d dimensions, stores hold %d",
			domain.ErrDimensionMismatch, svc.Model(), svc.Dimensions(), s.dimensions)
	}
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return fmt.Errorf("embedding health check: %w", err)
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ConnectClassifier installs c once it answers a ping. A rejected c is
// closed. A nil c clears the slot.
func (s *Services) ConnectClassifier(ctx context.Context, c driven.Classifier) error {
	if c == nil {
		s.SetClassifier(nil)
		return nil
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("classifier ping: %w", err)
	}
	s.SetClassifier(c)
	return nil
}

// Close releases both collaborators and clears the availability flags
func (s *Services) Close() error {
	s.mu.Lock()
	embedding, classifier := s.embedding, s.classifier
	s.embedding, s.classifier = nil, nil
	s.config.SetEmbeddingAvailable(false)
	s.config.SetClassifierAvailable(false)
	s.mu.Unlock()

	var errs []error
	if embedding != nil {
		errs = append(errs, embedding.Close())
	}
	if classifier != nil {
		errs = append(errs, classifier.Close())
	}
	return errors.Join(errs...)
}
