package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// MaterializeOptions configures an exploration graph rebuild
type MaterializeOptions struct {
	// Clear drops the exploration layer before rebuilding it
	Clear bool `json:"clear"`

	// DryRun counts what would be written without writing
	DryRun bool `json:"dry_run"`
}

// MaterializeReport summarizes a materialization pass
type MaterializeReport struct {
	Entities         int  `json:"entities"`
	Nodes            int  `json:"nodes"`
	Relations        int  `json:"relations"`
	NewRelations     int  `json:"new_relations"`
	RestoredStatuses int  `json:"restored_statuses"`
	Cleared          bool `json:"cleared"`
	DryRun           bool `json:"dry_run"`
}

// PromotionRequest asks for one exploratory claim to be committed
type PromotionRequest struct {
	Key domain.ClaimKey `json:"key"`

	// DstType overrides the destination endpoint type. By default the
	// target is an entity when one exists with that ID, else a pattern.
	DstType domain.EndpointType `json:"dst_type,omitempty"`

	Reviewer string         `json:"reviewer,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PromotionOutcome is the result of a promotion
type PromotionOutcome struct {
	Status    domain.ClaimStatus `json:"status"`
	Edge      *domain.Edge       `json:"edge,omitempty"`
	EpisodeID string             `json:"episode_id,omitempty"`
}

// RuleReport summarizes an automatic promotion pass
type RuleReport struct {
	Considered int      `json:"considered"`
	Committed  int      `json:"committed"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// EntityMaterializer mirrors one entity's detected edges into the
// exploration graph. Ingestion calls it after every committed document.
type EntityMaterializer interface {
	MaterializeEntity(ctx context.Context, entity *domain.Entity) (*MaterializeReport, error)
}

// PromotionService moves relationship claims from proposal to committed edge
type PromotionService interface {
	// Materialize mirrors detected edges from entity metadata into the
	// exploration graph. Idempotent; committed edges are never touched.
	Materialize(ctx context.Context, opts MaterializeOptions) (*MaterializeReport, error)

	EntityMaterializer

	// Promote commits an exploratory claim after mapping its predicate onto
	// the closed set. Fails if no mapping exists.
	Promote(ctx context.Context, req PromotionRequest) (*PromotionOutcome, error)

	// Reject marks an exploratory claim as rejected. Terminal.
	Reject(ctx context.Context, key domain.ClaimKey, reviewer, reason string) (*PromotionOutcome, error)

	// ApplyRules commits every exploratory claim matching a promotion rule
	ApplyRules(ctx context.Context) (*RuleReport, error)

	// Claims lists exploration-layer claims, optionally by status
	Claims(ctx context.Context, status domain.ClaimStatus) ([]*domain.ProposedRelation, error)

	// Neighbors returns direct neighbors of a node in the exploration graph
	Neighbors(ctx context.Context, nodeID string) ([]domain.Neighbor, error)

	// EdgesFor returns committed edges touching an entity
	EdgesFor(ctx context.Context, entityID string) ([]*domain.Edge, error)
}
