package mocks

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Classifier = (*MockClassifier)(nil)

// MockClassifier returns canned classifications
type MockClassifier struct {
	// ClassifyFn, when set, handles every call
	ClassifyFn func(text string, fields []string) (*domain.Classification, error)

	// Result is returned when ClassifyFn is nil
	Result *domain.Classification
}

func (m *MockClassifier) Classify(ctx context.Context, text string, fields []string) (*domain.Classification, error) {
	if m.ClassifyFn != nil {
		return m.ClassifyFn(text, fields)
	}
	if m.Result == nil {
		return &domain.Classification{}, nil
	}
	c := *m.Result
	return &c, nil
}

func (m *MockClassifier) Model() string                  { return "mock-classifier" }
func (m *MockClassifier) Ping(ctx context.Context) error { return nil }
func (m *MockClassifier) Close() error                   { return nil }
