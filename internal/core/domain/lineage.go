package domain

import (
	"fmt"
	"math"
	"time"
)

// Operation is the closed set of state-changing operations
type Operation string

const (
	OpIngest         Operation = "ingest"
	OpClassify       Operation = "classify"
	OpDeclarePattern Operation = "declare_pattern"
	OpPublish        Operation = "publish"
	OpSynthesize     Operation = "synthesize"
	OpCreateEdge     Operation = "create_edge"
	OpEmbed          Operation = "embed"
)

// Valid reports whether op is a known operation
func (op Operation) Valid() bool {
	switch op {
	case OpIngest, OpClassify, OpDeclarePattern, OpPublish, OpSynthesize, OpCreateEdge, OpEmbed:
		return true
	}
	return false
}

// TargetType identifies what an episode acted on
type TargetType string

const (
	TargetEntity   TargetType = "entity"
	TargetPattern  TargetType = "pattern"
	TargetEdge     TargetType = "edge"
	TargetDelivery TargetType = "delivery"
)

// TokenUsage records model token consumption
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Episode is an append-only provenance record of one operation
type Episode struct {
	ID                string         `json:"id"`
	RunID             string         `json:"run_id,omitempty"`
	Operation         Operation      `json:"operation"`
	TargetType        TargetType     `json:"target_type"`
	TargetID          string         `json:"target_id"`
	ContextPatternIDs []string       `json:"context_pattern_ids,omitempty"`
	ContextEntityIDs  []string       `json:"context_entity_ids,omitempty"`
	CoherenceScore    *float64       `json:"coherence_score,omitempty"`
	AgentName         string         `json:"agent_name,omitempty"`
	AgentVersion      string         `json:"agent_version,omitempty"`
	ModelName         string         `json:"model_name,omitempty"`
	PromptHash        string         `json:"prompt_hash,omitempty"`
	TokenUsage        *TokenUsage    `json:"token_usage,omitempty"`
	DetectedEdges     []DetectedEdge `json:"detected_edges,omitempty"`
	InputHash         string         `json:"input_hash,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Failed reports whether the episode records a failed operation
func (e *Episode) Failed() bool {
	return e.ErrorMessage != ""
}

// SetCoherence validates and records a coherence score
func (e *Episode) SetCoherence(score float64) error {
	v, err := ClampCoherence(score)
	if err != nil {
		return err
	}
	e.CoherenceScore = &v
	return nil
}

// Validate checks the episode before it is appended
func (e *Episode) Validate() error {
	if !e.Operation.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, e.Operation)
	}
	if e.TargetID == "" {
		return fmt.Errorf("%w: episode target_id is required", ErrValidation)
	}
	if e.CoherenceScore != nil {
		v, err := ClampCoherence(*e.CoherenceScore)
		if err != nil {
			return err
		}
		e.CoherenceScore = &v
	}
	return nil
}

// coherenceEpsilon absorbs float rounding at the interval bounds
const coherenceEpsilon = 1e-9

// ClampCoherence clamps rounding noise into [0,1] and rejects anything else
func ClampCoherence(score float64) (float64, error) {
	if math.IsNaN(score) || score < -coherenceEpsilon || score > 1+coherenceEpsilon {
		return 0, fmt.Errorf("%w: %v", ErrCoherenceOutOfRange, score)
	}
	return math.Min(1, math.Max(0, score)), nil
}

// RunType identifies what started a run
type RunType string

const (
	RunManual    RunType = "manual"
	RunScheduled RunType = "scheduled"
	RunAgent     RunType = "agent"
)

// RunStatus is the state of a run. A run leaves running exactly once.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether s is a final state
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// RunMetrics counts what a run did
type RunMetrics struct {
	EntitiesCreated int `json:"entities_created"`
	EntitiesUpdated int `json:"entities_updated"`
	ChunksWritten   int `json:"chunks_written"`
	EdgesCreated    int `json:"edges_created"`
	Errors          int `json:"errors"`
}

// Run groups the episodes of one batch execution
type Run struct {
	ID           string         `json:"id"`
	RunType      RunType        `json:"run_type"`
	AgentName    string         `json:"agent_name,omitempty"`
	SourceName   string         `json:"source_name,omitempty"`
	SourceConfig map[string]any `json:"source_config,omitempty"`
	Status       RunStatus      `json:"status"`
	Metrics      RunMetrics     `json:"metrics"`
	ErrorMessage string         `json:"error_message,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}
