package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// IngestBatch ingests docs under one run. Each document commits or rolls
// back on its own, so one failure never affects its neighbours. When ctx is
// cancelled, documents already started finish and the rest are skipped.
func (s *Indexer) IngestBatch(ctx context.Context, docs []domain.SourceDocument, opts driving.BatchOptions) (*domain.BatchResult, error) {
	run, err := s.lineage.StartRun(ctx, driving.RunSpec{
		RunType:      opts.RunType,
		AgentName:    opts.AgentName,
		SourceName:   opts.SourceName,
		SourceConfig: opts.SourceConfig,
	})
	if err != nil {
		return nil, err
	}
	runCtx := WithRunID(ctx, run.ID)

	result := &domain.BatchResult{
		RunID:     run.ID,
		Documents: make([]domain.DocumentOutcome, len(docs)),
	}
	for i, doc := range docs {
		result.Documents[i] = domain.DocumentOutcome{Path: doc.Path, Status: domain.DocumentSkipped}
	}

	pool, err := ants.NewPool(s.batchConcurrency)
	if err != nil {
		return nil, fmt.Errorf("create batch pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		metrics domain.RunMetrics
	)
	for i, doc := range docs {
		if runCtx.Err() != nil {
			break
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if runCtx.Err() != nil {
				return
			}
			// A started document always runs to completion.
			res, err := s.Ingest(context.WithoutCancel(runCtx), doc)

			mu.Lock()
			defer mu.Unlock()
			out := &result.Documents[i]
			if err != nil {
				out.Status = domain.DocumentFailed
				out.Error = err.Error()
				out.EntityID = domain.EntityIDFromPath(doc.Path)
				metrics.Errors++
				return
			}
			out.Status = domain.DocumentSucceeded
			out.EntityID = res.EntityID
			out.Chunks = res.Chunks
			metrics.ChunksWritten += res.Chunks
			if res.Created {
				metrics.EntitiesCreated++
			} else {
				metrics.EntitiesUpdated++
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			mu.Lock()
			result.Documents[i].Status = domain.DocumentFailed
			result.Documents[i].Error = err.Error()
			metrics.Errors++
			mu.Unlock()
		}
	}
	wg.Wait()
	result.Tally()

	status := domain.RunCompleted
	var errMsg string
	switch {
	case ctx.Err() != nil:
		status = domain.RunCancelled
		errMsg = ctx.Err().Error()
	case len(docs) > 0 && result.Failed == len(docs):
		status = domain.RunFailed
		errMsg = "every document failed"
	}
	result.Status = status

	if err := s.lineage.FinishRun(context.WithoutCancel(ctx), run.ID, status, metrics, errMsg); err != nil {
		s.logger.Error("failed to finish run", "run_id", run.ID, "error", err)
	}
	s.logger.Info("batch finished",
		"run_id", run.ID,
		"status", status,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

// IngestSource reads every document from source and ingests them as a batch
func (s *Indexer) IngestSource(ctx context.Context, source driving.SourceReader, opts driving.BatchOptions) (*domain.BatchResult, error) {
	docs, err := source.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", source.Name(), err)
	}
	if opts.SourceName == "" {
		opts.SourceName = source.Name()
	}
	return s.IngestBatch(ctx, docs, opts)
}
