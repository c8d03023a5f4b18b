package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/metrics"
)

// Ensure LineageTracker implements LineageService
var _ driving.LineageService = (*LineageTracker)(nil)

type runIDKey struct{}

// WithRunID returns a context whose episodes nest under runID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run an operation belongs to, if any
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// LineageTracker records episodes and runs
type LineageTracker struct {
	episodes driven.EpisodeStore
	runs     driven.RunStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// LineageTrackerConfig holds dependencies for LineageTracker
type LineageTrackerConfig struct {
	Episodes driven.EpisodeStore
	Runs     driven.RunStore
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewLineageTracker creates a new LineageTracker
func NewLineageTracker(cfg LineageTrackerConfig) *LineageTracker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &LineageTracker{
		episodes: cfg.Episodes,
		runs:     cfg.Runs,
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      now,
	}
}

// StartRun opens a run in the running state
func (t *LineageTracker) StartRun(ctx context.Context, spec driving.RunSpec) (*domain.Run, error) {
	runType := spec.RunType
	if runType == "" {
		runType = domain.RunManual
	}
	switch runType {
	case domain.RunManual, domain.RunScheduled, domain.RunAgent:
	default:
		return nil, fmt.Errorf("%w: unknown run type %q", domain.ErrValidation, runType)
	}

	run := &domain.Run{
		ID:           domain.GenerateID(),
		RunType:      runType,
		AgentName:    spec.AgentName,
		SourceName:   spec.SourceName,
		SourceConfig: spec.SourceConfig,
		Status:       domain.RunRunning,
		StartedAt:    t.now().UTC(),
	}
	if err := t.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	t.logger.Info("run started", "run_id", run.ID, "run_type", run.RunType, "source", run.SourceName)
	return run, nil
}

// FinishRun moves a run to a terminal state. A second call fails with
// ErrRunFinished.
func (t *LineageTracker) FinishRun(ctx context.Context, runID string, status domain.RunStatus, m domain.RunMetrics, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %q is not a terminal run status", domain.ErrValidation, status)
	}
	if err := t.runs.Finish(ctx, runID, status, m, errMsg, t.now().UTC()); err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	t.logger.Info("run finished", "run_id", runID, "status", status, "errors", m.Errors)
	return nil
}

// GetRun returns a run
func (t *LineageTracker) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return t.runs.Get(ctx, runID)
}

// Record fills in identity and timestamps, validates and appends episode.
// Episodes without a run take the run carried by ctx.
func (t *LineageTracker) Record(ctx context.Context, episode *domain.Episode) error {
	if episode.ID == "" {
		episode.ID = domain.GenerateID()
	}
	if episode.CreatedAt.IsZero() {
		episode.CreatedAt = t.now().UTC()
	}
	if episode.RunID == "" {
		episode.RunID = RunIDFromContext(ctx)
	}
	if err := episode.Validate(); err != nil {
		return err
	}
	if err := t.episodes.Append(ctx, episode); err != nil {
		return fmt.Errorf("append %s episode for %s: %w", episode.Operation, episode.TargetID, err)
	}
	t.metrics.Episode(string(episode.Operation), episode.Failed())
	return nil
}

// Track runs fn and records episode on both exit paths. The episode is
// appended even when ctx has been cancelled.
func (t *LineageTracker) Track(ctx context.Context, episode *domain.Episode, fn func(ctx context.Context) error) error {
	opErr := fn(ctx)
	if opErr != nil {
		episode.ErrorMessage = opErr.Error()
	}

	recErr := t.Record(context.WithoutCancel(ctx), episode)
	if recErr != nil {
		t.logger.Error("failed to record episode",
			"operation", episode.Operation,
			"target_id", episode.TargetID,
			"error", recErr,
		)
	}
	if opErr != nil {
		return opErr
	}
	return recErr
}

// Lineage returns a target's episodes in creation order
func (t *LineageTracker) Lineage(ctx context.Context, targetID string) ([]*domain.Episode, error) {
	return t.episodes.ListByTarget(ctx, targetID)
}

// RunEpisodes returns the episodes recorded under a run
func (t *LineageTracker) RunEpisodes(ctx context.Context, runID string) ([]*domain.Episode, error) {
	if _, err := t.runs.Get(ctx, runID); err != nil {
		return nil, err
	}
	return t.episodes.ListByRun(ctx, runID)
}
