package driven

import "context"

// EmbeddingService turns text into vectors. Stored vectors and query
// vectors are only comparable when they come from the same model, so
// Model is recorded on every episode that embeds.
type EmbeddingService interface {
	// Embed returns one vector per text, in input order. Either every
	// text gets a vector or the call fails.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions is the length of every returned vector
	Dimensions() int

	Model() string

	HealthCheck(ctx context.Context) error
	Close() error
}

// EmbeddingCache remembers query vectors. Keys include the model, so a
// model change never serves stale vectors.
type EmbeddingCache interface {
	Get(ctx context.Context, model, text string) (vec []float32, found bool, err error)
	Set(ctx context.Context, model, text string, vec []float32) error
}
