// Package neo4j keeps the exploration graph in Neo4j. Nodes carry the :Node
// label; every claim is a :PROPOSES relationship whose predicate is a
// property, since free-form predicates cannot be relationship types.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExplorationGraph = (*GraphStore)(nil)

// Config holds the Neo4j connection settings
type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

// runner executes one auto-commit query and collects its records
type runner func(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error)

// GraphStore implements ExplorationGraph on Neo4j
type GraphStore struct {
	driver neo4j.DriverWithContext
	run    runner
}

// Connect opens a driver, verifies connectivity and ensures the node constraint
func Connect(ctx context.Context, cfg Config) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URL, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: neo4j: %w", domain.ErrServiceUnavailable, err)
	}

	s := &GraphStore{driver: driver}
	s.run = func(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
		opts := []neo4j.ExecuteQueryConfigurationOption{}
		if cfg.Database != "" {
			opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
		}
		return neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	}

	if _, err := s.run(ctx, `CREATE CONSTRAINT kb_node_id IF NOT EXISTS FOR (n:Node) REQUIRE n.id IS UNIQUE`, nil); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("create node constraint: %w", err)
	}
	return s, nil
}

// Close closes the driver
func (s *GraphStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func (s *GraphStore) exec(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	res, err := s.run(ctx, cypher, params)
	if err != nil {
		if neo4j.IsRetryable(err) {
			return nil, fmt.Errorf("%w: neo4j: %w", domain.ErrTransaction, err)
		}
		return nil, fmt.Errorf("neo4j: %w", err)
	}
	return res, nil
}

const upsertNodeQuery = `
MERGE (n:Node {id: $id})
SET n.label = $label,
    n.title = CASE WHEN $title = '' THEN coalesce(n.title, '') ELSE $title END`

// UpsertNode creates or updates a node. An empty title keeps the old one.
func (s *GraphStore) UpsertNode(ctx context.Context, node domain.GraphNode) error {
	_, err := s.exec(ctx, upsertNodeQuery, map[string]any{
		"id": node.ID, "label": node.Label, "title": node.Title,
	})
	return err
}

// Endpoints created implicitly are concepts until materialized otherwise
const upsertRelationQuery = `
MERGE (s:Node {id: $source}) ON CREATE SET s.label = 'concept', s.title = ''
MERGE (t:Node {id: $target}) ON CREATE SET t.label = 'concept', t.title = ''
MERGE (s)-[r:PROPOSES {predicate: $predicate}]->(t)
ON CREATE SET r.fresh = true
SET r.strength = $strength, r.rationale = $rationale, r.status = $status
WITH r, coalesce(r.fresh, false) AS created
REMOVE r.fresh
RETURN created`

// UpsertRelation creates or updates a relation by claim key
func (s *GraphStore) UpsertRelation(ctx context.Context, rel domain.ProposedRelation) (bool, error) {
	res, err := s.exec(ctx, upsertRelationQuery, map[string]any{
		"source":    rel.Key.Source,
		"target":    rel.Key.Target,
		"predicate": rel.Key.Predicate,
		"strength":  rel.Strength,
		"rationale": rel.Rationale,
		"status":    string(rel.Status),
	})
	if err != nil {
		return false, err
	}
	if len(res.Records) == 0 {
		return false, fmt.Errorf("neo4j: upsert relation returned no rows")
	}
	return boolValue(res.Records[0], "created"), nil
}

const relationReturn = `
RETURN s.id AS source, t.id AS target, r.predicate AS predicate,
       r.strength AS strength, r.rationale AS rationale, r.status AS status`

// Relation returns one relation
func (s *GraphStore) Relation(ctx context.Context, key domain.ClaimKey) (*domain.ProposedRelation, error) {
	res, err := s.exec(ctx, `
MATCH (s:Node {id: $source})-[r:PROPOSES {predicate: $predicate}]->(t:Node {id: $target})`+relationReturn,
		keyParams(key))
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, domain.ErrNotFound
	}
	rel := recordRelation(res.Records[0])
	return &rel, nil
}

// Relations lists relations with the given status, or all when empty
func (s *GraphStore) Relations(ctx context.Context, status domain.ClaimStatus) ([]*domain.ProposedRelation, error) {
	res, err := s.exec(ctx, `
MATCH (s:Node)-[r:PROPOSES]->(t:Node)
WHERE $status = '' OR r.status = $status`+relationReturn+`
ORDER BY source, predicate, target`, map[string]any{"status": string(status)})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ProposedRelation, 0, len(res.Records))
	for _, rec := range res.Records {
		rel := recordRelation(rec)
		out = append(out, &rel)
	}
	return out, nil
}

// SetStatus updates a relation's status
func (s *GraphStore) SetStatus(ctx context.Context, key domain.ClaimKey, status domain.ClaimStatus) error {
	params := keyParams(key)
	params["status"] = string(status)
	res, err := s.exec(ctx, `
MATCH (:Node {id: $source})-[r:PROPOSES {predicate: $predicate}]->(:Node {id: $target})
SET r.status = $status
RETURN count(r) AS updated`, params)
	if err != nil {
		return err
	}
	if len(res.Records) == 0 || intValue(res.Records[0], "updated") == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const neighborsQuery = `
CALL {
  MATCH (:Node {id: $id})-[r:PROPOSES]->(n:Node)
  RETURN 'outgoing' AS direction, n, r
  UNION ALL
  MATCH (n:Node)-[r:PROPOSES]->(:Node {id: $id})
  RETURN 'incoming' AS direction, n, r
}
RETURN direction, n.id AS id, coalesce(n.label, 'concept') AS label, coalesce(n.title, '') AS title,
       r.predicate AS predicate, r.strength AS strength, r.status AS status
ORDER BY direction DESC, id, predicate`

// Neighbors returns direct neighbors of a node, outgoing first
func (s *GraphStore) Neighbors(ctx context.Context, nodeID string) ([]domain.Neighbor, error) {
	res, err := s.exec(ctx, neighborsQuery, map[string]any{"id": nodeID})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Neighbor, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, domain.Neighbor{
			Node: domain.GraphNode{
				ID:    stringValue(rec, "id"),
				Label: stringValue(rec, "label"),
				Title: stringValue(rec, "title"),
			},
			Direction: stringValue(rec, "direction"),
			Predicate: stringValue(rec, "predicate"),
			Strength:  floatValue(rec, "strength"),
			Status:    domain.ClaimStatus(stringValue(rec, "status")),
		})
	}
	return out, nil
}

// Clear removes every node and relation
func (s *GraphStore) Clear(ctx context.Context) error {
	_, err := s.exec(ctx, `MATCH (n:Node) DETACH DELETE n`, nil)
	return err
}

// Ping checks if the graph backend is healthy
func (s *GraphStore) Ping(ctx context.Context) error {
	if s.driver == nil {
		_, err := s.exec(ctx, `RETURN 1`, nil)
		return err
	}
	return s.driver.VerifyConnectivity(ctx)
}

func keyParams(key domain.ClaimKey) map[string]any {
	return map[string]any{"source": key.Source, "target": key.Target, "predicate": key.Predicate}
}

func recordRelation(rec *neo4j.Record) domain.ProposedRelation {
	return domain.ProposedRelation{
		Key: domain.ClaimKey{
			Source:    stringValue(rec, "source"),
			Target:    stringValue(rec, "target"),
			Predicate: stringValue(rec, "predicate"),
		},
		Strength:  floatValue(rec, "strength"),
		Rationale: stringValue(rec, "rationale"),
		Status:    domain.ClaimStatus(stringValue(rec, "status")),
	}
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func floatValue(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch f := v.(type) {
	case float64:
		return f
	case int64:
		return float64(f)
	}
	return 0
}

func intValue(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	n, _ := v.(int64)
	return n
}

func boolValue(rec *neo4j.Record, key string) bool {
	v, _ := rec.Get(key)
	b, _ := v.(bool)
	return b
}
