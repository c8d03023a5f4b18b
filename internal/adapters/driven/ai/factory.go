package ai

import (
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Supported providers
const (
	ProviderOpenAI = "openai"
	// ProviderOllama talks to Ollama's OpenAI-compatible endpoint
	ProviderOllama = "ollama"
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// EmbeddingSettings selects and configures an embedding provider
type EmbeddingSettings struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// ClassifierSettings selects and configures a classifier provider
type ClassifierSettings struct {
	Enabled  bool
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Factory creates AI collaborators from configuration
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a new AI service factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateEmbeddingService returns nil, nil when the provider lacks the
// credentials it needs; embeddings are then left pending.
func (f *Factory) CreateEmbeddingService(s EmbeddingSettings) (driven.EmbeddingService, error) {
	switch s.Provider {
	case ProviderOpenAI, "":
		if s.APIKey == "" {
			return nil, nil
		}
		return embedding(NewOpenAIEmbedding(s.APIKey, s.Model, s.BaseURL, s.Dimensions))
	case ProviderOllama:
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		return embedding(NewOpenAIEmbedding("ollama", s.Model, baseURL, s.Dimensions))
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrValidation, s.Provider)
	}
}

// CreateClassifier returns nil, nil when classification is disabled or
// unconfigured; ingestion then proceeds without it.
func (f *Factory) CreateClassifier(s ClassifierSettings) (driven.Classifier, error) {
	if !s.Enabled {
		return nil, nil
	}
	switch s.Provider {
	case ProviderOpenAI, "":
		if s.APIKey == "" {
			f.logger.Warn("classifier enabled without an API key, continuing without classification")
			return nil, nil
		}
		return classifier(NewOpenAIClassifier(s.APIKey, s.Model, s.BaseURL, f.logger))
	case ProviderOllama:
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		return classifier(NewOpenAIClassifier("ollama", s.Model, baseURL, f.logger))
	default:
		return nil, fmt.Errorf("%w: unknown classifier provider %q", domain.ErrValidation, s.Provider)
	}
}

// embedding and classifier keep a failed constructor from yielding a
// non-nil interface holding a nil pointer

func embedding(e *OpenAIEmbedding, err error) (driven.EmbeddingService, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

func classifier(c *LLMClassifier, err error) (driven.Classifier, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
