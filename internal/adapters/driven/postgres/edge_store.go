package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EdgeStore = (*EdgeStore)(nil)

// EdgeStore implements driven.EdgeStore using PostgreSQL. Committed edges
// and claim decisions share a transaction.
type EdgeStore struct {
	db *DB
}

// NewEdgeStore creates a new EdgeStore
func NewEdgeStore(db *DB) *EdgeStore {
	return &EdgeStore{db: db}
}

const edgeColumns = `id, src_type, src_id, dst_type, dst_id, predicate, strength, metadata, created_at, updated_at`

func scanEdge(row rowScanner) (*domain.Edge, error) {
	var (
		e    domain.Edge
		meta []byte
	)
	err := row.Scan(&e.ID, &e.SrcType, &e.SrcID, &e.DstType, &e.DstID, &e.Predicate, &e.Strength,
		&meta, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode edge metadata: %w", err)
		}
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

// Commit upserts the edge by identity and records the decision
func (s *EdgeStore) Commit(ctx context.Context, edge *domain.Edge, decision *domain.ClaimDecision) (*domain.Edge, error) {
	if err := edge.Validate(); err != nil {
		return nil, err
	}
	meta, err := json.Marshal(edge.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: encode edge metadata: %w", domain.ErrValidation, err)
	}

	var committed *domain.Edge
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, ep := range [][2]string{{string(edge.SrcType), edge.SrcID}, {string(edge.DstType), edge.DstID}} {
			if domain.EndpointType(ep[0]) != domain.EndpointEntity {
				continue
			}
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM entities WHERE id = $1)`, ep[1]).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: entity %s", domain.ErrDanglingEndpoint, ep[1])
			}
		}

		if decision != nil {
			var status string
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM claim_decisions WHERE source = $1 AND target = $2 AND predicate = $3 FOR UPDATE`,
				decision.Key.Source, decision.Key.Target, decision.Key.Predicate).Scan(&status)
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return err
			case domain.ClaimStatus(status) == domain.ClaimRejected:
				return fmt.Errorf("%w: %s was rejected", domain.ErrClaimDecided, decision.Key)
			}
		}

		row := tx.QueryRowContext(ctx, upsertEdgeSQL,
			edge.ID, edge.SrcType, edge.SrcID, edge.DstType, edge.DstID, edge.Predicate, edge.Strength, meta)
		stored, err := scanEdge(row)
		if err != nil {
			return err
		}

		if decision != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO claim_decisions (source, target, predicate, status, edge_id, reviewer, reason, decided_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (source, target, predicate) DO UPDATE SET
					status = EXCLUDED.status,
					edge_id = EXCLUDED.edge_id,
					reviewer = EXCLUDED.reviewer,
					decided_at = EXCLUDED.decided_at
			`, decision.Key.Source, decision.Key.Target, decision.Key.Predicate, domain.ClaimCommitted,
				stored.ID, nullable(decision.Reviewer), nullable(decision.Reason), decision.DecidedAt)
			if err != nil {
				return err
			}
		}
		committed = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// upsertEdgeSQL inserts an edge or enriches the metadata of the edge with
// the same identity. Strength is fixed at first commit.
const upsertEdgeSQL = `
	INSERT INTO edges (id, src_type, src_id, dst_type, dst_id, predicate, strength, metadata, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	ON CONFLICT (src_type, src_id, dst_type, dst_id, predicate) DO UPDATE SET
		metadata = edges.metadata || EXCLUDED.metadata,
		updated_at = NOW()
	RETURNING ` + edgeColumns

// Reject records a terminal rejection
func (s *EdgeStore) Reject(ctx context.Context, decision *domain.ClaimDecision) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO claim_decisions (source, target, predicate, status, reviewer, reason, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source, target, predicate) DO NOTHING
	`, decision.Key.Source, decision.Key.Target, decision.Key.Predicate, domain.ClaimRejected,
		nullable(decision.Reviewer), nullable(decision.Reason), decision.DecidedAt)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrClaimDecided, decision.Key)
	}
	return nil
}

const decisionColumns = `source, target, predicate, status, edge_id, reviewer, reason, decided_at`

func scanDecision(row rowScanner) (*domain.ClaimDecision, error) {
	var (
		d                        domain.ClaimDecision
		edgeID, reviewer, reason sql.NullString
	)
	err := row.Scan(&d.Key.Source, &d.Key.Target, &d.Key.Predicate, &d.Status, &edgeID, &reviewer, &reason, &d.DecidedAt)
	if err != nil {
		return nil, notFound(err)
	}
	d.EdgeID, d.Reviewer, d.Reason = edgeID.String, reviewer.String, reason.String
	d.DecidedAt = d.DecidedAt.UTC()
	return &d, nil
}

// Decision returns the decision for a claim
func (s *EdgeStore) Decision(ctx context.Context, key domain.ClaimKey) (*domain.ClaimDecision, error) {
	return scanDecision(s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM claim_decisions WHERE source = $1 AND target = $2 AND predicate = $3`,
		key.Source, key.Target, key.Predicate))
}

// Decisions returns all decisions
func (s *EdgeStore) Decisions(ctx context.Context) ([]*domain.ClaimDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM claim_decisions ORDER BY source, predicate, target`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*domain.ClaimDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get retrieves an edge by ID
func (s *EdgeStore) Get(ctx context.Context, id string) (*domain.Edge, error) {
	return scanEdge(s.db.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM edges WHERE id = $1`, id))
}

// ListForEndpoint returns edges where the endpoint is source or destination
func (s *EdgeStore) ListForEndpoint(ctx context.Context, endpointType domain.EndpointType, id string) ([]*domain.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+edgeColumns+` FROM edges
		WHERE (src_type = $1 AND src_id = $2) OR (dst_type = $1 AND dst_id = $2)
		ORDER BY id
	`, endpointType, id)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*domain.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an edge
func (s *EdgeStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectRow(res)
}
