package ai

import (
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestFactory_CreateEmbeddingService(t *testing.T) {
	factory := NewFactory(nil)

	testCases := []struct {
		name     string
		settings EmbeddingSettings
		wantNil  bool
		wantErr  error
		wantURL  string
		wantDims int
	}{
		{name: "openai without key", settings: EmbeddingSettings{Provider: ProviderOpenAI}, wantNil: true},
		{name: "default provider", settings: EmbeddingSettings{APIKey: "sk-test"}, wantURL: defaultOpenAIBaseURL, wantDims: 1536},
		{name: "openai reduced", settings: EmbeddingSettings{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "text-embedding-3-large", Dimensions: 1024}, wantURL: defaultOpenAIBaseURL, wantDims: 1024},
		{name: "ollama", settings: EmbeddingSettings{Provider: ProviderOllama, Model: "nomic-embed-text", Dimensions: 768}, wantURL: defaultOllamaBaseURL, wantDims: 768},
		{name: "unknown", settings: EmbeddingSettings{Provider: "cohere", APIKey: "k"}, wantNil: true, wantErr: domain.ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := factory.CreateEmbeddingService(tc.settings)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantNil {
				if svc != nil {
					t.Error("expected nil service")
				}
				return
			}
			emb, ok := svc.(*OpenAIEmbedding)
			if !ok {
				t.Fatalf("expected *OpenAIEmbedding, got %T", svc)
			}
			if emb.baseURL != tc.wantURL {
				t.Errorf("base URL = %s, want %s", emb.baseURL, tc.wantURL)
			}
			if emb.Dimensions() != tc.wantDims {
				t.Errorf("dimensions = %d, want %d", emb.Dimensions(), tc.wantDims)
			}
		})
	}
}

func TestFactory_CreateClassifier(t *testing.T) {
	factory := NewFactory(nil)

	c, err := factory.CreateClassifier(ClassifierSettings{Enabled: false, APIKey: "sk-test"})
	if err != nil || c != nil {
		t.Errorf("disabled classifier: got %v, %v", c, err)
	}

	c, err = factory.CreateClassifier(ClassifierSettings{Enabled: true})
	if err != nil || c != nil {
		t.Errorf("classifier without key: got %v, %v", c, err)
	}

	c, err = factory.CreateClassifier(ClassifierSettings{Enabled: true, APIKey: "sk-test", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil || c.Model() != "gpt-4o" {
		t.Errorf("expected gpt-4o classifier, got %v", c)
	}

	c, err = factory.CreateClassifier(ClassifierSettings{Enabled: true, Provider: ProviderOllama, Model: "llama3"})
	if err != nil || c == nil {
		t.Errorf("ollama classifier: got %v, %v", c, err)
	}

	_, err = factory.CreateClassifier(ClassifierSettings{Enabled: true, Provider: "bedrock"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
