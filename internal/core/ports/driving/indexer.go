package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// IndexerService ingests documents into the knowledge base
type IndexerService interface {
	// Ingest upserts one document and replaces its chunks atomically.
	// An ingest episode is recorded whether or not it succeeds.
	Ingest(ctx context.Context, doc domain.SourceDocument) (*domain.IngestResult, error)

	// IngestBatch ingests documents under one run. Failures are reported
	// per document. Cancelling ctx stops the batch between documents.
	IngestBatch(ctx context.Context, docs []domain.SourceDocument, opts BatchOptions) (*domain.BatchResult, error)

	// IngestSource reads every document from a source and ingests them as a batch
	IngestSource(ctx context.Context, source SourceReader, opts BatchOptions) (*domain.BatchResult, error)

	// Delete removes an entity and its chunks
	Delete(ctx context.Context, entityID string) error

	// EmbedPending computes vectors left null by earlier collaborator failures
	EmbedPending(ctx context.Context, limit int) (*domain.EmbedReport, error)

	// Get returns an entity and its chunks
	Get(ctx context.Context, entityID string) (*domain.Entity, []*domain.Chunk, error)
}

// SourceReader is the subset of a document source the indexer needs
type SourceReader interface {
	Name() string
	Documents(ctx context.Context) ([]domain.SourceDocument, error)
}

// BatchOptions configures a batch run
type BatchOptions struct {
	RunType      domain.RunType `json:"run_type,omitempty"`
	AgentName    string         `json:"agent_name,omitempty"`
	SourceName   string         `json:"source_name,omitempty"`
	SourceConfig map[string]any `json:"source_config,omitempty"`
}
