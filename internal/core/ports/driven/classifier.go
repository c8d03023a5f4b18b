package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// Classifier produces structured metadata for a document.
// Any field of the result may be missing.
type Classifier interface {
	// Classify extracts the requested fields from text
	Classify(ctx context.Context, text string, fields []string) (*domain.Classification, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the classifier is available
	Ping(ctx context.Context) error

	// Close releases resources held by the classifier
	Close() error
}
