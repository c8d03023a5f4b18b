package services

import (
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// DocumentEmbeddingText builds the text behind an entity's vector from its
// title, content type and classification metadata. Absent fields are left
// out. Content never appears here.
func DocumentEmbeddingText(e *domain.Entity) string {
	var parts []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	list := func(label string, values []string) {
		var kept []string
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			parts = append(parts, label+": "+strings.Join(kept, ", "))
		}
	}

	add("Title", e.Title)
	add("Summary", e.Metadata.Summary)
	add("Type", e.ContentType)
	add("Concept", e.Metadata.PrimaryConcept)
	list("Subject areas", e.Metadata.SubjectAreas)
	list("Broader concepts", e.Metadata.BroaderConcepts)
	list("Narrower concepts", e.Metadata.NarrowerConcepts)

	return strings.Join(parts, "\n")
}

// PassageEmbeddingText returns the chunk content unmodified
func PassageEmbeddingText(c *domain.Chunk) string {
	return c.Content
}
