package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// DefaultClassifierFields are requested from the classifier when none are
// configured
var DefaultClassifierFields = []string{
	"content_type",
	"summary",
	"primary_concept",
	"subject_area",
	"broader_concepts",
	"narrower_concepts",
	"concept_ownership",
	"detected_edges",
}

// classify calls the classifier with retry and records a classify episode.
// A nil result with a nil error means no classifier is configured. Errors
// are collaborator failures; callers continue without classification.
func (s *Indexer) classify(ctx context.Context, entityID, body, inputHash string) (*domain.Classification, error) {
	classifier := s.services.Classifier()
	if classifier == nil {
		return nil, nil
	}

	episode := &domain.Episode{
		Operation:    domain.OpClassify,
		TargetType:   domain.TargetEntity,
		TargetID:     entityID,
		AgentName:    s.agentName,
		AgentVersion: s.agentVersion,
		ModelName:    classifier.Model(),
		InputHash:    inputHash,
	}

	var result *domain.Classification
	err := s.lineage.Track(ctx, episode, func(ctx context.Context) error {
		c, err := s.callClassifier(ctx, classifier, body)
		if err != nil {
			return err
		}
		result = c
		if c.Model != "" {
			episode.ModelName = c.Model
		}
		episode.PromptHash = c.PromptHash
		episode.TokenUsage = c.Usage
		episode.DetectedEdges = c.Metadata().DetectedEdges
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Indexer) callClassifier(ctx context.Context, classifier driven.Classifier, body string) (*domain.Classification, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.retryInitial
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.retryAttempts-1)), ctx)

	var out *domain.Classification
	op := func() error {
		c, err := classifier.Classify(ctx, body, s.classifierFields)
		if err != nil {
			wrapped := fmt.Errorf("%w: classify: %w", domain.ErrCollaborator, err)
			if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrInvalidInput) {
				return backoff.Permanent(wrapped)
			}
			return wrapped
		}
		if c == nil {
			c = &domain.Classification{}
		}
		out = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("classifier call failed, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return out, nil
}
