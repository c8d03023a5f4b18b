package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ExplorationGraph holds proposed relations. It is disposable: everything in
// it can be rebuilt from entity metadata and claim decisions.
type ExplorationGraph interface {
	// UpsertNode creates or updates a node by ID
	UpsertNode(ctx context.Context, node domain.GraphNode) error

	// UpsertRelation creates or updates a relation by its claim key.
	// Returns true when a new relation was created.
	UpsertRelation(ctx context.Context, rel domain.ProposedRelation) (bool, error)

	// Relation returns one relation, or domain.ErrNotFound
	Relation(ctx context.Context, key domain.ClaimKey) (*domain.ProposedRelation, error)

	// Relations lists relations with the given status, or all when status is empty
	Relations(ctx context.Context, status domain.ClaimStatus) ([]*domain.ProposedRelation, error)

	// SetStatus updates a relation's status
	SetStatus(ctx context.Context, key domain.ClaimKey, status domain.ClaimStatus) error

	// Neighbors returns direct neighbors of a node in both directions
	Neighbors(ctx context.Context, nodeID string) ([]domain.Neighbor, error)

	// Clear removes every node and relation
	Clear(ctx context.Context) error

	// Ping checks if the graph backend is healthy
	Ping(ctx context.Context) error
}
