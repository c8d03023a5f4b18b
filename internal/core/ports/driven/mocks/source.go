package mocks

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentSource = (*MockSource)(nil)

// MockSource serves a fixed document list
type MockSource struct {
	SourceName string
	Docs       []domain.SourceDocument
	Err        error
}

func (m *MockSource) Name() string { return m.SourceName }

func (m *MockSource) Documents(ctx context.Context) ([]domain.SourceDocument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.SourceDocument(nil), m.Docs...), nil
}
