package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// EdgeStore handles committed edges and durable claim decisions
type EdgeStore interface {
	// Commit validates the edge, checks that entity endpoints exist, and in
	// one transaction upserts the edge by identity and records decision with
	// the edge ID. Re-committing an existing edge enriches its metadata.
	// Returns domain.ErrDanglingEndpoint for a missing entity endpoint and
	// domain.ErrClaimDecided when the claim was rejected earlier.
	Commit(ctx context.Context, edge *domain.Edge, decision *domain.ClaimDecision) (*domain.Edge, error)

	// Reject records a terminal rejection. Returns domain.ErrClaimDecided if
	// the claim already has a decision.
	Reject(ctx context.Context, decision *domain.ClaimDecision) error

	// Decision returns the decision for a claim, or domain.ErrNotFound
	Decision(ctx context.Context, key domain.ClaimKey) (*domain.ClaimDecision, error)

	// Decisions returns all decisions
	Decisions(ctx context.Context) ([]*domain.ClaimDecision, error)

	// Get retrieves an edge by ID
	Get(ctx context.Context, id string) (*domain.Edge, error)

	// ListForEndpoint returns edges where the endpoint is source or destination
	ListForEndpoint(ctx context.Context, endpointType domain.EndpointType, id string) ([]*domain.Edge, error)

	// Delete removes an edge. Changing predicate or endpoints is delete + commit.
	Delete(ctx context.Context, id string) error
}
