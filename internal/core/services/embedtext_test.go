package services

import (
	"testing"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestDocumentEmbeddingText(t *testing.T) {
	e := &domain.Entity{
		Title:       "Hybrid Search",
		ContentType: "guide",
		Metadata: domain.Metadata{
			Summary:          "Two-stage retrieval.",
			PrimaryConcept:   "retrieval",
			SubjectAreas:     []string{"search", " ", "ranking"},
			BroaderConcepts:  []string{"information retrieval"},
			NarrowerConcepts: []string{"reranking"},
			Extra:            map[string]any{"owner": "ignored"},
		},
	}

	want := "Title: Hybrid Search\n" +
		"Summary: Two-stage retrieval.\n" +
		"Type: guide\n" +
		"Concept: retrieval\n" +
		"Subject areas: search, ranking\n" +
		"Broader concepts: information retrieval\n" +
		"Narrower concepts: reranking"

	if got := DocumentEmbeddingText(e); got != want {
		t.Errorf("unexpected text:\n%s\nwant:\n%s", got, want)
	}
}

func TestDocumentEmbeddingText_OmitsAbsentFields(t *testing.T) {
	e := &domain.Entity{Title: "Only Title"}
	if got := DocumentEmbeddingText(e); got != "Title: Only Title" {
		t.Errorf("unexpected text %q", got)
	}
	if got := DocumentEmbeddingText(&domain.Entity{}); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestEmbeddingText_Deterministic(t *testing.T) {
	e := &domain.Entity{Title: "T", Metadata: domain.Metadata{SubjectAreas: []string{"b", "a"}}}
	c := &domain.Chunk{Content: "passage body", HeadingPath: []string{"H"}, Corpus: "core_kb"}

	first, firstPassage := DocumentEmbeddingText(e), PassageEmbeddingText(c)
	for i := 0; i < 5; i++ {
		_ = PassageEmbeddingText(&domain.Chunk{Content: "other"})
		if DocumentEmbeddingText(e) != first || PassageEmbeddingText(c) != firstPassage {
			t.Fatal("builders must be pure")
		}
	}
}

func TestEmbeddingText_DisjointInputs(t *testing.T) {
	e := &domain.Entity{Title: "Title words", Metadata: domain.Metadata{Summary: "summary words"}}
	c := &domain.Chunk{Content: "raw passage", HeadingPath: []string{"Heading"}, Corpus: "core_kb", ContentType: "guide"}

	if got := PassageEmbeddingText(c); got != "raw passage" {
		t.Errorf("passage text must be the raw content, got %q", got)
	}
	if got := DocumentEmbeddingText(e); got == "" || got == PassageEmbeddingText(c) {
		t.Errorf("document text should come from metadata, got %q", got)
	}
}
