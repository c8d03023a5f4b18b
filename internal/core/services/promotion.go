package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/metrics"
)

// Ensure PromotionPipeline implements PromotionService
var _ driving.PromotionService = (*PromotionPipeline)(nil)

// PromotionRule commits exploratory claims automatically. Predicate "*"
// matches any predicate.
type PromotionRule struct {
	Predicate   string              `yaml:"predicate" json:"predicate"`
	MinStrength float64             `yaml:"min_strength" json:"min_strength"`
	DstType     domain.EndpointType `yaml:"dst_type,omitempty" json:"dst_type,omitempty"`
}

// Matches reports whether rel satisfies the rule
func (r PromotionRule) Matches(rel *domain.ProposedRelation) bool {
	if r.Predicate != "*" && domain.NormalizePredicate(r.Predicate) != rel.Key.Predicate {
		return false
	}
	return rel.Strength >= r.MinStrength
}

// PromotionPipeline moves relationship claims through
// proposed -> exploratory -> committed | rejected.
//
// Proposals live in entity metadata. Materialize mirrors them into the
// exploration graph, which is disposable. Committed edges and review
// decisions live in the edge store, which is the durable record; a rebuilt
// graph takes claim status from the decisions.
type PromotionPipeline struct {
	entities driven.EntityStore
	edges    driven.EdgeStore
	graph    driven.ExplorationGraph
	mapper   *domain.PredicateMapper
	rules    []PromotionRule
	lineage  driving.LineageService
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	pageSize int
}

// PromotionPipelineConfig holds dependencies for PromotionPipeline
type PromotionPipelineConfig struct {
	Entities driven.EntityStore
	Edges    driven.EdgeStore
	Graph    driven.ExplorationGraph
	Mapper   *domain.PredicateMapper
	Rules    []PromotionRule
	Lineage  driving.LineageService
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time

	// PageSize is the entity page size used while materializing
	PageSize int
}

// NewPromotionPipeline creates a new PromotionPipeline
func NewPromotionPipeline(cfg PromotionPipelineConfig) *PromotionPipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	return &PromotionPipeline{
		entities: cfg.Entities,
		edges:    cfg.Edges,
		graph:    cfg.Graph,
		mapper:   cfg.Mapper,
		rules:    cfg.Rules,
		lineage:  cfg.Lineage,
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      now,
		pageSize: pageSize,
	}
}

// Materialize mirrors detected edges from entity metadata into the
// exploration graph. Committed edges are never read or written here.
func (p *PromotionPipeline) Materialize(ctx context.Context, opts driving.MaterializeOptions) (*driving.MaterializeReport, error) {
	report := &driving.MaterializeReport{DryRun: opts.DryRun}

	entities, err := p.allEntities(ctx)
	if err != nil {
		return nil, err
	}
	report.Entities = len(entities)

	decided, err := p.decisions(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Clear {
		if !opts.DryRun {
			if err := p.graph.Clear(ctx); err != nil {
				return nil, fmt.Errorf("clear exploration graph: %w", err)
			}
		}
		report.Cleared = true
	}

	known := make(map[string]bool, len(entities))
	for _, e := range entities {
		known[e.ID] = true
	}
	st := &mirrorState{
		opts:   opts,
		report: report,
		nodes:  make(map[string]bool),
		seen:   make(map[domain.ClaimKey]bool),
		known: func(_ context.Context, id string) (bool, error) {
			return known[id], nil
		},
		decided: func(_ context.Context, key domain.ClaimKey) (domain.ClaimStatus, bool, error) {
			status, ok := decided[key]
			return status, ok, nil
		},
	}
	for _, e := range entities {
		if err := p.mirror(ctx, e, st); err != nil {
			return nil, err
		}
	}

	p.logger.Info("exploration graph materialized",
		"entities", report.Entities,
		"relations", report.Relations,
		"new_relations", report.NewRelations,
		"cleared", report.Cleared,
		"dry_run", report.DryRun,
	)
	return report, nil
}

// MaterializeEntity mirrors the detected edges of one entity into the
// exploration graph. Stored decisions keep their status.
func (p *PromotionPipeline) MaterializeEntity(ctx context.Context, e *domain.Entity) (*driving.MaterializeReport, error) {
	report := &driving.MaterializeReport{Entities: 1}
	st := &mirrorState{
		report: report,
		nodes:  make(map[string]bool),
		seen:   make(map[domain.ClaimKey]bool),
		known: func(ctx context.Context, id string) (bool, error) {
			if id == e.ID {
				return true, nil
			}
			_, err := p.entities.Get(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
		decided: func(ctx context.Context, key domain.ClaimKey) (domain.ClaimStatus, bool, error) {
			d, err := p.edges.Decision(ctx, key)
			if errors.Is(err, domain.ErrNotFound) {
				return "", false, nil
			}
			if err != nil {
				return "", false, fmt.Errorf("load claim decision %s: %w", key, err)
			}
			return d.Status, true, nil
		},
	}
	if err := p.mirror(ctx, e, st); err != nil {
		return nil, err
	}
	p.logger.Debug("entity materialized",
		"entity_id", e.ID,
		"relations", report.Relations,
		"new_relations", report.NewRelations,
	)
	return report, nil
}

// mirrorState carries one materialization pass
type mirrorState struct {
	opts    driving.MaterializeOptions
	report  *driving.MaterializeReport
	nodes   map[string]bool
	seen    map[domain.ClaimKey]bool
	known   func(ctx context.Context, id string) (bool, error)
	decided func(ctx context.Context, key domain.ClaimKey) (domain.ClaimStatus, bool, error)
}

func (st *mirrorState) upsertNode(ctx context.Context, graph driven.ExplorationGraph, node domain.GraphNode) error {
	if st.nodes[node.ID] {
		return nil
	}
	st.nodes[node.ID] = true
	st.report.Nodes++
	if st.opts.DryRun {
		return nil
	}
	return graph.UpsertNode(ctx, node)
}

// mirror upserts the entity node, its targets and one relation per
// distinct claim. Malformed detected edges are skipped.
func (p *PromotionPipeline) mirror(ctx context.Context, e *domain.Entity, st *mirrorState) error {
	if err := st.upsertNode(ctx, p.graph, domain.GraphNode{ID: e.ID, Label: "entity", Title: e.Title}); err != nil {
		return fmt.Errorf("upsert node %s: %w", e.ID, err)
	}

	for _, raw := range e.Metadata.DetectedEdges {
		de, err := raw.Normalize()
		if err != nil {
			p.logger.Debug("skipping malformed detected edge", "entity_id", e.ID, "error", err)
			continue
		}
		key := domain.NewClaimKey(e.ID, de.TargetID, de.Predicate)
		if st.seen[key] {
			continue
		}
		st.seen[key] = true

		isEntity, err := st.known(ctx, de.TargetID)
		if err != nil {
			return fmt.Errorf("resolve target %s: %w", de.TargetID, err)
		}
		label := "concept"
		if isEntity {
			label = "entity"
		}
		if err := st.upsertNode(ctx, p.graph, domain.GraphNode{ID: de.TargetID, Label: label}); err != nil {
			return fmt.Errorf("upsert node %s: %w", de.TargetID, err)
		}

		status := domain.ClaimExploratory
		d, ok, err := st.decided(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			status = d
			st.report.RestoredStatuses++
		}
		st.report.Relations++

		rel := domain.ProposedRelation{Key: key, Strength: de.Strength, Rationale: de.Rationale, Status: status}
		created, err := p.upsertRelation(ctx, rel, st.opts)
		if err != nil {
			return fmt.Errorf("upsert relation %s: %w", key, err)
		}
		if created {
			st.report.NewRelations++
		}
	}
	return nil
}

func (p *PromotionPipeline) upsertRelation(ctx context.Context, rel domain.ProposedRelation, opts driving.MaterializeOptions) (bool, error) {
	if !opts.DryRun {
		return p.graph.UpsertRelation(ctx, rel)
	}
	if opts.Clear {
		return true, nil
	}
	_, err := p.graph.Relation(ctx, rel.Key)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	return false, err
}

func (p *PromotionPipeline) allEntities(ctx context.Context) ([]*domain.Entity, error) {
	var all []*domain.Entity
	for offset := 0; ; offset += p.pageSize {
		page, err := p.entities.List(ctx, p.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list entities: %w", err)
		}
		all = append(all, page...)
		if len(page) < p.pageSize {
			return all, nil
		}
	}
}

func (p *PromotionPipeline) decisions(ctx context.Context) (map[domain.ClaimKey]domain.ClaimStatus, error) {
	list, err := p.edges.Decisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load claim decisions: %w", err)
	}
	out := make(map[domain.ClaimKey]domain.ClaimStatus, len(list))
	for _, d := range list {
		out[d.Key] = d.Status
	}
	return out, nil
}

// Promote commits an exploratory claim. The free-form predicate must map
// onto the closed set; otherwise promotion fails with ErrUnmappedPredicate
// and the claim stays exploratory.
func (p *PromotionPipeline) Promote(ctx context.Context, req driving.PromotionRequest) (*driving.PromotionOutcome, error) {
	key := domain.NewClaimKey(req.Key.Source, req.Key.Target, req.Key.Predicate)

	episode := &domain.Episode{
		Operation:        domain.OpCreateEdge,
		TargetType:       domain.TargetEdge,
		TargetID:         key.String(),
		AgentName:        req.Reviewer,
		ContextEntityIDs: []string{key.Source},
		Metadata:         map[string]any{"free_predicate": key.Predicate},
	}

	var edge *domain.Edge
	err := p.lineage.Track(ctx, episode, func(ctx context.Context) error {
		committed, err := p.commit(ctx, key, req, episode)
		if err != nil {
			return err
		}
		edge = committed
		episode.TargetID = committed.ID
		return nil
	})
	if err != nil {
		p.metrics.Promotion("failed")
		return nil, err
	}

	p.metrics.Promotion(string(domain.ClaimCommitted))
	p.logger.Info("claim promoted", "claim", key.String(), "edge_id", edge.ID, "predicate", edge.Predicate)
	return &driving.PromotionOutcome{Status: domain.ClaimCommitted, Edge: edge, EpisodeID: episode.ID}, nil
}

func (p *PromotionPipeline) commit(ctx context.Context, key domain.ClaimKey, req driving.PromotionRequest, episode *domain.Episode) (*domain.Edge, error) {
	rel, err := p.openClaim(ctx, key)
	if err != nil {
		return nil, err
	}

	predicate, err := p.mapper.Map(key.Predicate)
	if err != nil {
		return nil, err
	}
	episode.Metadata["predicate"] = string(predicate)

	dstType := req.DstType
	if dstType == "" {
		dstType, err = p.endpointType(ctx, key.Target)
		if err != nil {
			return nil, err
		}
	}
	if dstType == domain.EndpointEntity {
		episode.ContextEntityIDs = append(episode.ContextEntityIDs, key.Target)
	}

	meta := make(map[string]any, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta["free_predicate"] = key.Predicate
	if rel.Rationale != "" {
		meta["rationale"] = rel.Rationale
	}

	now := p.now().UTC()
	edge := &domain.Edge{
		ID:        domain.GenerateID(),
		SrcType:   domain.EndpointEntity,
		SrcID:     key.Source,
		DstType:   dstType,
		DstID:     key.Target,
		Predicate: predicate,
		Strength:  rel.Strength,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := edge.Validate(); err != nil {
		return nil, err
	}

	committed, err := p.edges.Commit(ctx, edge, &domain.ClaimDecision{
		Key:       key,
		Status:    domain.ClaimCommitted,
		EdgeID:    edge.ID,
		Reviewer:  req.Reviewer,
		DecidedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("commit edge for %s: %w", key, err)
	}

	if err := p.graph.SetStatus(ctx, key, domain.ClaimCommitted); err != nil {
		p.logger.Warn("exploration graph status not updated", "claim", key.String(), "error", err)
	}
	return committed, nil
}

// openClaim returns the claim if it exists and is not yet decided
func (p *PromotionPipeline) openClaim(ctx context.Context, key domain.ClaimKey) (*domain.ProposedRelation, error) {
	rel, err := p.graph.Relation(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("claim %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load claim %s: %w", key, err)
	}
	if rel.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrClaimDecided, key, rel.Status)
	}

	d, err := p.edges.Decision(ctx, key)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrClaimDecided, key, d.Status)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load decision for %s: %w", key, err)
	}
	return rel, nil
}

// endpointType resolves a target to an entity when one exists, else a pattern
func (p *PromotionPipeline) endpointType(ctx context.Context, id string) (domain.EndpointType, error) {
	_, err := p.entities.Get(ctx, id)
	switch {
	case err == nil:
		return domain.EndpointEntity, nil
	case errors.Is(err, domain.ErrNotFound):
		return domain.EndpointPattern, nil
	default:
		return "", fmt.Errorf("resolve endpoint %s: %w", id, err)
	}
}

// Reject marks an exploratory claim rejected. The decision is durable, so
// rebuilding the graph does not resurrect the claim.
func (p *PromotionPipeline) Reject(ctx context.Context, key domain.ClaimKey, reviewer, reason string) (*driving.PromotionOutcome, error) {
	key = domain.NewClaimKey(key.Source, key.Target, key.Predicate)
	if _, err := p.openClaim(ctx, key); err != nil {
		return nil, err
	}

	err := p.edges.Reject(ctx, &domain.ClaimDecision{
		Key:       key,
		Status:    domain.ClaimRejected,
		Reviewer:  reviewer,
		Reason:    reason,
		DecidedAt: p.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("reject %s: %w", key, err)
	}
	if err := p.graph.SetStatus(ctx, key, domain.ClaimRejected); err != nil {
		p.logger.Warn("exploration graph status not updated", "claim", key.String(), "error", err)
	}

	p.metrics.Promotion(string(domain.ClaimRejected))
	p.logger.Info("claim rejected", "claim", key.String(), "reviewer", reviewer)
	return &driving.PromotionOutcome{Status: domain.ClaimRejected}, nil
}

// ApplyRules commits every exploratory claim matching a promotion rule.
// Failures are collected per claim and do not stop the pass.
func (p *PromotionPipeline) ApplyRules(ctx context.Context) (*driving.RuleReport, error) {
	report := &driving.RuleReport{}
	if len(p.rules) == 0 {
		return report, nil
	}

	claims, err := p.graph.Relations(ctx, domain.ClaimExploratory)
	if err != nil {
		return nil, fmt.Errorf("list exploratory claims: %w", err)
	}

	for _, rel := range claims {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rule, ok := p.matchRule(rel)
		if !ok {
			continue
		}
		report.Considered++
		_, err := p.Promote(ctx, driving.PromotionRequest{
			Key:      rel.Key,
			DstType:  rule.DstType,
			Reviewer: "rule:" + rule.Predicate,
		})
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", rel.Key, err))
			continue
		}
		report.Committed++
	}

	p.logger.Info("promotion rules applied",
		"considered", report.Considered,
		"committed", report.Committed,
		"failed", report.Failed,
	)
	return report, nil
}

func (p *PromotionPipeline) matchRule(rel *domain.ProposedRelation) (PromotionRule, bool) {
	for _, r := range p.rules {
		if r.Matches(rel) {
			return r, true
		}
	}
	return PromotionRule{}, false
}

// Claims lists exploration-layer claims, optionally by status
func (p *PromotionPipeline) Claims(ctx context.Context, status domain.ClaimStatus) ([]*domain.ProposedRelation, error) {
	return p.graph.Relations(ctx, status)
}

// Neighbors returns direct neighbors of a node in the exploration graph
func (p *PromotionPipeline) Neighbors(ctx context.Context, nodeID string) ([]domain.Neighbor, error) {
	return p.graph.Neighbors(ctx, nodeID)
}

// EdgesFor returns committed edges touching an entity
func (p *PromotionPipeline) EdgesFor(ctx context.Context, entityID string) ([]*domain.Edge, error) {
	return p.edges.ListForEndpoint(ctx, domain.EndpointEntity, entityID)
}
