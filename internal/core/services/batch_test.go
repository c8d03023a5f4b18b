package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

func batchDocs() []domain.SourceDocument {
	return []domain.SourceDocument{
		{Path: "docs/guides/hybrid-search.md", Content: hybridSearchDoc},
		{Path: "docs/guides/broken.md", Content: "# Broken\n\nNever stored.", EntityType: "widget"},
		{Path: "deploy/rollout.md", Content: "# Rollout\n\nShip in waves."},
	}
}

func TestIngestBatch_ReportsPerDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.indexer.IngestBatch(ctx, batchDocs(), driving.BatchOptions{SourceName: "docs"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, result.Status)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Skipped)

	require.Len(t, result.Documents, 3)
	assert.Equal(t, domain.DocumentSucceeded, result.Documents[0].Status)
	assert.Equal(t, "hybrid-search", result.Documents[0].EntityID)
	assert.Equal(t, 3, result.Documents[0].Chunks)
	assert.Equal(t, domain.DocumentFailed, result.Documents[1].Status)
	assert.Contains(t, result.Documents[1].Error, "entity_type")
	assert.Equal(t, domain.DocumentSucceeded, result.Documents[2].Status)

	rollout, _, err := env.indexer.Get(ctx, "rollout")
	require.NoError(t, err)
	assert.Equal(t, "deployment", rollout.Corpus)
	assert.Equal(t, "runbook", rollout.ContentType)
	assert.Equal(t, domain.LifecycleStable, rollout.LifecycleStage)

	run, err := env.lineage.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, "docs", run.SourceName)
	assert.Equal(t, 2, run.Metrics.EntitiesCreated)
	assert.Equal(t, 4, run.Metrics.ChunksWritten)
	assert.Equal(t, 1, run.Metrics.Errors)

	eps, err := env.lineage.RunEpisodes(ctx, result.RunID)
	require.NoError(t, err)
	assert.Len(t, eps, 3, "one ingest episode per document, failures included")
}

func TestIngestBatch_AllFailedMarksRunFailed(t *testing.T) {
	env := newTestEnv(t)
	docs := []domain.SourceDocument{{Path: "a.md", Content: "x", EntityType: "widget"}}

	result, err := env.indexer.IngestBatch(context.Background(), docs, driving.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, result.Status)

	run, err := env.lineage.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.NotEmpty(t, run.ErrorMessage)
}

func TestIngestBatch_UpdatesCountAsUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docs := []domain.SourceDocument{hybridDoc()}

	_, err := env.indexer.IngestBatch(ctx, docs, driving.BatchOptions{})
	require.NoError(t, err)
	result, err := env.indexer.IngestBatch(ctx, docs, driving.BatchOptions{})
	require.NoError(t, err)

	run, err := env.lineage.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Zero(t, run.Metrics.EntitiesCreated)
	assert.Equal(t, 1, run.Metrics.EntitiesUpdated)
}

func TestIngestBatch_CancelledBetweenDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.indexer.batchConcurrency = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first document cancels the batch while it is being ingested.
	first := true
	env.services.SetClassifier(&mocks.MockClassifier{
		ClassifyFn: func(string, []string) (*domain.Classification, error) {
			if first {
				first = false
				cancel()
			}
			return &domain.Classification{}, nil
		},
	})

	docs := []domain.SourceDocument{
		hybridDoc(),
		{Path: "docs/two.md", Content: "# Two\n\nSecond."},
		{Path: "docs/three.md", Content: "# Three\n\nThird."},
	}
	result, err := env.indexer.IngestBatch(ctx, docs, driving.BatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.RunCancelled, result.Status)
	assert.Equal(t, domain.DocumentSucceeded, result.Documents[0].Status, "a started document runs to completion")
	assert.Equal(t, domain.DocumentSkipped, result.Documents[1].Status)
	assert.Equal(t, domain.DocumentSkipped, result.Documents[2].Status)
	assert.Equal(t, 2, result.Skipped)

	_, chunks, err := env.indexer.Get(context.Background(), "hybrid-search")
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Embedding)
	}

	_, _, err = env.indexer.Get(context.Background(), "two")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	run, err := env.lineage.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCancelled, run.Status)
}

func TestIngestBatch_SameEntityTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs := []domain.SourceDocument{
		{Path: "docs/notes.md", Content: "# Notes\n\nVersion one."},
		{Path: "docs/notes.md", Content: "# Notes\n\nVersion two, longer now."},
	}
	result, err := env.indexer.IngestBatch(ctx, docs, driving.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)

	entity, chunks, err := env.indexer.Get(ctx, "notes")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, entity.ChunkCount, len(chunks))
	words := map[bool]int{true: 4, false: 6}
	assert.Equal(t, words[strings.Contains(chunks[0].Content, "Version one.")], entity.Metadata.WordCount,
		"entity and chunks come from the same write")
}

func TestIngestBatch_IDCollision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.indexer.Ingest(ctx, domain.SourceDocument{Path: "docs/research/setup.md", Content: "# Research setup\n\nGPU notes."})
	require.NoError(t, err)

	result, err := env.indexer.IngestBatch(ctx, []domain.SourceDocument{
		{Path: "deploy/setup.md", Content: "# Deploy setup\n\nHelm values."},
		{Path: "docs/two.md", Content: "# Two\n\nSecond."},
	}, driving.BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, domain.DocumentFailed, result.Documents[0].Status)
	assert.Equal(t, "setup", result.Documents[0].EntityID)
	assert.Contains(t, result.Documents[0].Error, "docs/research/setup.md")

	entity, chunks, err := env.indexer.Get(ctx, "setup")
	require.NoError(t, err)
	assert.Equal(t, "docs/research/setup.md", entity.SourcePath)
	assert.Equal(t, "research_ai", entity.Corpus)
	assert.Equal(t, "Research setup", entity.Title)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "GPU notes.")
}

func TestIngestSource(t *testing.T) {
	env := newTestEnv(t)
	source := &mocks.MockSource{SourceName: "handbook", Docs: batchDocs()[:1]}

	result, err := env.indexer.IngestSource(context.Background(), source, driving.BatchOptions{RunType: domain.RunScheduled})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	run, err := env.lineage.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, "handbook", run.SourceName)
	assert.Equal(t, domain.RunScheduled, run.RunType)
}

func TestIngestSource_ReadError(t *testing.T) {
	env := newTestEnv(t)
	source := &mocks.MockSource{SourceName: "handbook", Err: errors.New("permission denied")}

	_, err := env.indexer.IngestSource(context.Background(), source, driving.BatchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
