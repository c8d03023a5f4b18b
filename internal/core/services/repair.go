package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// DefaultRepairLimit bounds entities and chunks read per EmbedPending call
const DefaultRepairLimit = 100

// EmbedPending computes vectors left null by earlier collaborator failures.
// Work is grouped per entity; each group runs under the entity lock and
// records one embed episode against the entity.
func (s *Indexer) EmbedPending(ctx context.Context, limit int) (*domain.EmbedReport, error) {
	if limit <= 0 {
		limit = DefaultRepairLimit
	}
	svc := s.services.EmbeddingService()
	if svc == nil || s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
	}

	entities, err := s.entities.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list entities missing embeddings: %w", err)
	}
	chunks, err := s.chunks.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list chunks missing embeddings: %w", err)
	}

	groups := make(map[string]*repairGroup)
	group := func(id string) *repairGroup {
		g, ok := groups[id]
		if !ok {
			g = &repairGroup{entityID: id}
			groups[id] = g
		}
		return g
	}
	for _, e := range entities {
		group(e.ID).entity = true
	}
	for _, c := range chunks {
		g := group(c.EntityID)
		g.chunkIDs = append(g.chunkIDs, c.ID)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := &domain.EmbedReport{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		g := groups[id]
		episode := &domain.Episode{
			Operation:    domain.OpEmbed,
			TargetType:   domain.TargetEntity,
			TargetID:     id,
			AgentName:    s.agentName,
			AgentVersion: s.agentVersion,
			ModelName:    svc.Model(),
			Metadata:     map[string]any{},
		}
		var entityDone, chunksDone, failed int
		trackErr := s.lineage.Track(ctx, episode, func(ctx context.Context) error {
			var err error
			entityDone, chunksDone, failed, err = s.repairEntity(ctx, g)
			episode.Metadata["entity_embedded"] = entityDone > 0
			episode.Metadata["chunks_embedded"] = chunksDone
			if err == nil && failed > 0 {
				err = fmt.Errorf("%w: %d vectors still pending", domain.ErrCollaborator, failed)
			}
			return err
		})
		report.EntitiesEmbedded += entityDone
		report.ChunksEmbedded += chunksDone
		report.Failed += failed
		if trackErr != nil {
			s.logger.Warn("embedding repair incomplete", "entity_id", id, "error", trackErr)
		}
	}

	s.logger.Info("embedding repair finished",
		"entities", report.EntitiesEmbedded,
		"chunks", report.ChunksEmbedded,
		"failed", report.Failed,
	)
	return report, nil
}

type repairGroup struct {
	entityID string
	entity   bool
	chunkIDs []string
}

// repairEntity re-reads the entity under its lock so vectors are only
// written for text that is still current.
func (s *Indexer) repairEntity(ctx context.Context, g *repairGroup) (entityDone, chunksDone, failed int, err error) {
	unlock, err := s.locker.Lock(ctx, g.entityID)
	if err != nil {
		return 0, 0, 0, err
	}
	defer unlock()

	entity, current, err := s.load(ctx, g.entityID)
	if err != nil {
		return 0, 0, 0, err
	}
	if entity == nil {
		return 0, 0, 0, nil
	}

	wanted := make(map[string]bool, len(g.chunkIDs))
	for _, id := range g.chunkIDs {
		wanted[id] = true
	}

	var texts []string
	var targets []*domain.Chunk // nil is the entity
	if g.entity && len(entity.Embedding) == 0 {
		texts = append(texts, DocumentEmbeddingText(entity))
		targets = append(targets, nil)
	}
	for _, c := range current {
		if wanted[c.ID] && len(c.Embedding) == 0 {
			texts = append(texts, PassageEmbeddingText(c))
			targets = append(targets, c)
		}
	}
	if len(texts) == 0 {
		return 0, 0, 0, nil
	}

	vecs, errs := s.embedder.EmbedAll(ctx, s.services.EmbeddingService(), texts)
	for i, target := range targets {
		if errs[i] != nil {
			failed++
			continue
		}
		if target == nil {
			if err := s.entities.SetEmbedding(ctx, entity.ID, vecs[i]); err != nil {
				return entityDone, chunksDone, failed, fmt.Errorf("store entity vector: %w", err)
			}
			entityDone++
			continue
		}
		if err := s.chunks.SetEmbedding(ctx, target.ID, vecs[i]); err != nil {
			return entityDone, chunksDone, failed, fmt.Errorf("store chunk vector: %w", err)
		}
		chunksDone++
	}
	s.metrics.EmbeddingFailed(failed)
	return entityDone, chunksDone, failed, nil
}
