package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.EpisodeStore = (*EpisodeStore)(nil)
	_ driven.RunStore     = (*RunStore)(nil)
)

// EpisodeStore implements driven.EpisodeStore. The table is insert-only.
type EpisodeStore struct {
	db *DB
}

// NewEpisodeStore creates a new EpisodeStore
func NewEpisodeStore(db *DB) *EpisodeStore {
	return &EpisodeStore{db: db}
}

const episodeColumns = `id, run_id, operation, target_type, target_id, context_pattern_ids, context_entity_ids,
	coherence_score, agent_name, agent_version, model_name, prompt_hash, token_usage, detected_edges,
	input_hash, error_message, metadata, created_at`

// Append persists a new episode
func (s *EpisodeStore) Append(ctx context.Context, ep *domain.Episode) error {
	var usage []byte
	if ep.TokenUsage != nil {
		b, err := json.Marshal(ep.TokenUsage)
		if err != nil {
			return fmt.Errorf("encode token usage: %w", err)
		}
		usage = b
	}
	edges, err := json.Marshal(nonNilEdges(ep.DetectedEdges))
	if err != nil {
		return fmt.Errorf("encode detected edges: %w", err)
	}
	meta, err := json.Marshal(nonNilMap(ep.Metadata))
	if err != nil {
		return fmt.Errorf("%w: encode episode metadata: %w", domain.ErrValidation, err)
	}

	var coherence sql.NullFloat64
	if ep.CoherenceScore != nil {
		coherence = sql.NullFloat64{Float64: *ep.CoherenceScore, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodes (`+episodeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		ep.ID, nullable(ep.RunID), ep.Operation, ep.TargetType, ep.TargetID,
		pq.Array(nonNilStrings(ep.ContextPatternIDs)), pq.Array(nonNilStrings(ep.ContextEntityIDs)),
		coherence, nullable(ep.AgentName), nullable(ep.AgentVersion), nullable(ep.ModelName),
		nullable(ep.PromptHash), usage, edges, nullable(ep.InputHash), nullable(ep.ErrorMessage),
		meta, ep.CreatedAt,
	)
	return mapError(err)
}

// ListByTarget returns a target's episodes in creation order
func (s *EpisodeStore) ListByTarget(ctx context.Context, targetID string) ([]*domain.Episode, error) {
	return s.list(ctx, `target_id = $1`, targetID)
}

// ListByRun returns a run's episodes in creation order
func (s *EpisodeStore) ListByRun(ctx context.Context, runID string) ([]*domain.Episode, error) {
	return s.list(ctx, `run_id = $1`, runID)
}

func (s *EpisodeStore) list(ctx context.Context, where string, arg any) ([]*domain.Episode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE `+where+` ORDER BY created_at, id`, arg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*domain.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

func scanEpisode(row rowScanner) (*domain.Episode, error) {
	var (
		ep                                                  domain.Episode
		runID, agent, version, model, prompt, input, errMsg sql.NullString
		patterns, entities                                  pq.StringArray
		coherence                                           sql.NullFloat64
		usage, edges, meta                                  []byte
	)
	err := row.Scan(&ep.ID, &runID, &ep.Operation, &ep.TargetType, &ep.TargetID, &patterns, &entities,
		&coherence, &agent, &version, &model, &prompt, &usage, &edges, &input, &errMsg, &meta, &ep.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	ep.RunID, ep.AgentName, ep.AgentVersion = runID.String, agent.String, version.String
	ep.ModelName, ep.PromptHash, ep.InputHash, ep.ErrorMessage = model.String, prompt.String, input.String, errMsg.String
	if len(patterns) > 0 {
		ep.ContextPatternIDs = []string(patterns)
	}
	if len(entities) > 0 {
		ep.ContextEntityIDs = []string(entities)
	}
	if coherence.Valid {
		v := coherence.Float64
		ep.CoherenceScore = &v
	}
	if len(usage) > 0 {
		ep.TokenUsage = &domain.TokenUsage{}
		if err := json.Unmarshal(usage, ep.TokenUsage); err != nil {
			return nil, fmt.Errorf("decode token usage: %w", err)
		}
	}
	if len(edges) > 0 {
		if err := json.Unmarshal(edges, &ep.DetectedEdges); err != nil {
			return nil, fmt.Errorf("decode detected edges: %w", err)
		}
		if len(ep.DetectedEdges) == 0 {
			ep.DetectedEdges = nil
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &ep.Metadata); err != nil {
			return nil, fmt.Errorf("decode episode metadata: %w", err)
		}
		if len(ep.Metadata) == 0 {
			ep.Metadata = nil
		}
	}
	ep.CreatedAt = ep.CreatedAt.UTC()
	return &ep, nil
}

// RunStore implements driven.RunStore
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Create persists a new running run
func (s *RunStore) Create(ctx context.Context, run *domain.Run) error {
	cfg, err := json.Marshal(nonNilMap(run.SourceConfig))
	if err != nil {
		return fmt.Errorf("%w: encode source config: %w", domain.ErrValidation, err)
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, run_type, agent_name, source_name, source_config, status, metrics, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.RunType, nullable(run.AgentName), nullable(run.SourceName), cfg, run.Status, metrics, run.StartedAt)
	return mapError(err)
}

// Get retrieves a run by ID
func (s *RunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	var (
		run                   domain.Run
		agent, source, errMsg sql.NullString
		cfg, metrics          []byte
		completed             sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_type, agent_name, source_name, source_config, status, metrics, error_message, started_at, completed_at
		FROM runs WHERE id = $1
	`, id).Scan(&run.ID, &run.RunType, &agent, &source, &cfg, &run.Status, &metrics, &errMsg, &run.StartedAt, &completed)
	if err != nil {
		return nil, notFound(err)
	}

	run.AgentName, run.SourceName, run.ErrorMessage = agent.String, source.String, errMsg.String
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &run.SourceConfig); err != nil {
			return nil, fmt.Errorf("decode source config: %w", err)
		}
		if len(run.SourceConfig) == 0 {
			run.SourceConfig = nil
		}
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &run.Metrics); err != nil {
			return nil, fmt.Errorf("decode run metrics: %w", err)
		}
	}
	run.StartedAt = run.StartedAt.UTC()
	run.CompletedAt = timePtr(completed)
	return &run, nil
}

// Finish moves a running run to a terminal status. The status guard in
// the WHERE clause makes the transition happen once.
func (s *RunStore) Finish(ctx context.Context, id string, status domain.RunStatus, metrics domain.RunMetrics, errMsg string, at time.Time) error {
	m, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = $2, metrics = $3, error_message = $4, completed_at = $5
		WHERE id = $1 AND status = 'running'
	`, id, status, m, nullable(errMsg), at)
	if err != nil {
		return mapError(err)
	}
	if err := expectRow(res); err != nil {
		if _, getErr := s.Get(ctx, id); errors.Is(getErr, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: %s", domain.ErrRunFinished, id)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilEdges(e []domain.DetectedEdge) []domain.DetectedEdge {
	if e == nil {
		return []domain.DetectedEdge{}
	}
	return e
}
