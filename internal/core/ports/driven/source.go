package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// DocumentSource yields documents for batch ingestion
type DocumentSource interface {
	// Name identifies the source in run records
	Name() string

	// Documents returns the source's documents in a stable order
	Documents(ctx context.Context) ([]domain.SourceDocument, error)
}
