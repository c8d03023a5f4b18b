package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// RunSpec describes a run to start
type RunSpec struct {
	RunType      domain.RunType
	AgentName    string
	SourceName   string
	SourceConfig map[string]any
}

// LineageService records and reads provenance
type LineageService interface {
	// StartRun opens a run in the running state
	StartRun(ctx context.Context, spec RunSpec) (*domain.Run, error)

	// FinishRun moves a run to a terminal state, exactly once
	FinishRun(ctx context.Context, runID string, status domain.RunStatus, metrics domain.RunMetrics, errMsg string) error

	// GetRun returns a run
	GetRun(ctx context.Context, runID string) (*domain.Run, error)

	// Record validates and appends a finished episode
	Record(ctx context.Context, episode *domain.Episode) error

	// Track runs fn and records episode whether or not fn succeeds. A
	// failure is recorded with its error message and then returned.
	Track(ctx context.Context, episode *domain.Episode, fn func(ctx context.Context) error) error

	// Lineage returns a target's episodes in creation order
	Lineage(ctx context.Context, targetID string) ([]*domain.Episode, error)

	// RunEpisodes returns the episodes recorded under a run
	RunEpisodes(ctx context.Context, runID string) ([]*domain.Episode, error)
}
