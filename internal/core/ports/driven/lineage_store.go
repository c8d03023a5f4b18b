package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// EpisodeStore is an append-only episode log
type EpisodeStore interface {
	// Append persists a new episode. Episodes are never updated or deleted.
	Append(ctx context.Context, episode *domain.Episode) error

	// ListByTarget returns a target's episodes ordered by created_at, then ID
	ListByTarget(ctx context.Context, targetID string) ([]*domain.Episode, error)

	// ListByRun returns a run's episodes in the same order
	ListByRun(ctx context.Context, runID string) ([]*domain.Episode, error)
}

// RunStore handles batch run records
type RunStore interface {
	// Create persists a new running run
	Create(ctx context.Context, run *domain.Run) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id string) (*domain.Run, error)

	// Finish moves a running run to a terminal status. Returns
	// domain.ErrRunFinished if the run already left running.
	Finish(ctx context.Context, id string, status domain.RunStatus, metrics domain.RunMetrics, errMsg string, at time.Time) error
}
