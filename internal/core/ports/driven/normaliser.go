package driven

import "github.com/custodia-labs/sercha-kb/internal/core/domain"

// Normalised is the output of a normaliser
type Normalised struct {
	// Body is the text handed to the chunker
	Body string

	// Fields holds document-declared metadata such as YAML frontmatter
	Fields map[string]any
}

// Normaliser turns one source format into markdown-flavoured text the
// chunker can split on headings
type Normaliser interface {
	Normalise(content string, mimeType string) Normalised

	// SupportedTypes lists accepted media types. "text/*" and "*/*"
	// wildcards are allowed.
	SupportedTypes() []string

	// Priority breaks ties between normalisers accepting the same type;
	// format-specific normalisers rank above the plain text fallback.
	Priority() int
}

// NormaliserRegistry picks the normaliser for a MIME type
type NormaliserRegistry interface {
	// Normalise runs the most specific normaliser registered for mimeType.
	// Content no normaliser accepts comes back trimmed.
	Normalise(content, mimeType string) Normalised
}

// Chunker splits normalised text into heading-bounded passages.
// Output must be a pure function of the input text.
type Chunker interface {
	Chunk(text string) []domain.Passage
}
