package postgres

import (
	"context"
	"database/sql"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExplorationGraph = (*GraphStore)(nil)

// GraphStore keeps the exploration graph in two plain tables. It is the
// default backend when no graph database is configured.
type GraphStore struct {
	db *DB
}

// NewGraphStore creates a new GraphStore
func NewGraphStore(db *DB) *GraphStore {
	return &GraphStore{db: db}
}

// UpsertNode creates or updates a node. An empty title keeps the old one.
func (s *GraphStore) UpsertNode(ctx context.Context, node domain.GraphNode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO graph_nodes (id, label, title) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			title = COALESCE(NULLIF(EXCLUDED.title, ''), graph_nodes.title)
	`, node.ID, node.Label, node.Title)
	return mapError(err)
}

// UpsertRelation creates or updates a relation by claim key
func (s *GraphStore) UpsertRelation(ctx context.Context, rel domain.ProposedRelation) (bool, error) {
	// xmax is zero only for a freshly inserted row
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO graph_relations (source, target, predicate, strength, rationale, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source, target, predicate) DO UPDATE SET
			strength = EXCLUDED.strength,
			rationale = EXCLUDED.rationale,
			status = EXCLUDED.status
		RETURNING (xmax = 0)
	`, rel.Key.Source, rel.Key.Target, rel.Key.Predicate, rel.Strength, rel.Rationale, rel.Status).Scan(&created)
	if err != nil {
		return false, mapError(err)
	}
	return created, nil
}

const relationColumns = `source, target, predicate, strength, rationale, status`

func scanRelation(row rowScanner) (*domain.ProposedRelation, error) {
	var r domain.ProposedRelation
	if err := row.Scan(&r.Key.Source, &r.Key.Target, &r.Key.Predicate, &r.Strength, &r.Rationale, &r.Status); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// Relation returns one relation
func (s *GraphStore) Relation(ctx context.Context, key domain.ClaimKey) (*domain.ProposedRelation, error) {
	return scanRelation(s.db.QueryRowContext(ctx,
		`SELECT `+relationColumns+` FROM graph_relations WHERE source = $1 AND target = $2 AND predicate = $3`,
		key.Source, key.Target, key.Predicate))
}

// Relations lists relations with the given status, or all when empty
func (s *GraphStore) Relations(ctx context.Context, status domain.ClaimStatus) ([]*domain.ProposedRelation, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+relationColumns+` FROM graph_relations ORDER BY source, predicate, target`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+relationColumns+` FROM graph_relations WHERE status = $1 ORDER BY source, predicate, target`, status)
	}
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*domain.ProposedRelation
	for rows.Next() {
		r, err := scanRelation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetStatus updates a relation's status
func (s *GraphStore) SetStatus(ctx context.Context, key domain.ClaimKey, status domain.ClaimStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE graph_relations SET status = $4 WHERE source = $1 AND target = $2 AND predicate = $3`,
		key.Source, key.Target, key.Predicate, status)
	if err != nil {
		return mapError(err)
	}
	return expectRow(res)
}

// Neighbors returns direct neighbors of a node, outgoing first
func (s *GraphStore) Neighbors(ctx context.Context, nodeID string) ([]domain.Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'outgoing' AS direction, r.target, COALESCE(n.label, 'concept'), COALESCE(n.title, ''),
			r.predicate, r.strength, r.status
		FROM graph_relations r LEFT JOIN graph_nodes n ON n.id = r.target
		WHERE r.source = $1
		UNION ALL
		SELECT 'incoming', r.source, COALESCE(n.label, 'concept'), COALESCE(n.title, ''),
			r.predicate, r.strength, r.status
		FROM graph_relations r LEFT JOIN graph_nodes n ON n.id = r.source
		WHERE r.target = $1
		ORDER BY 1 DESC, 2, 5
	`, nodeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.Neighbor
	for rows.Next() {
		var n domain.Neighbor
		if err := rows.Scan(&n.Direction, &n.Node.ID, &n.Node.Label, &n.Node.Title, &n.Predicate, &n.Strength, &n.Status); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Clear removes every node and relation
func (s *GraphStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE graph_relations, graph_nodes`)
	return mapError(err)
}

// Ping checks if the database is reachable
func (s *GraphStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
