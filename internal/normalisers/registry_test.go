package normalisers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// stubNormaliser tags its output so tests can see which one ran
type stubNormaliser struct {
	name     string
	types    []string
	priority int
}

func (s *stubNormaliser) Normalise(content string, mimeType string) driven.Normalised {
	return driven.Normalised{Body: content + "|" + s.name}
}

func (s *stubNormaliser) SupportedTypes() []string { return s.types }

func (s *stubNormaliser) Priority() int { return s.priority }

func TestRegistry_Lookup(t *testing.T) {
	fallback := &stubNormaliser{name: "fallback", types: []string{"*/*"}, priority: 1}
	text := &stubNormaliser{name: "text", types: []string{"text/*"}, priority: 10}
	markdown := &stubNormaliser{name: "markdown", types: []string{"text/markdown"}, priority: 50}
	r := NewRegistry(fallback, markdown, text)

	tests := []struct {
		mimeType string
		want     string
	}{
		{"text/markdown", "markdown"},
		{"Text/Markdown; charset=utf-8", "markdown"},
		{"text/plain", "text"},
		{"text/html", "text"},
		{"application/pdf", "fallback"},
		{"", "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			n := r.Lookup(tt.mimeType)
			require.NotNil(t, n)
			assert.Equal(t, tt.want, n.(*stubNormaliser).name)
		})
	}
}

func TestRegistry_EqualPriorityKeepsRegistrationOrder(t *testing.T) {
	first := &stubNormaliser{name: "first", types: []string{"text/html"}, priority: 50}
	second := &stubNormaliser{name: "second", types: []string{"text/html"}, priority: 50}

	assert.Same(t, first, NewRegistry(first, second).Lookup("text/html"))
	assert.Same(t, second, NewRegistry(second, first).Lookup("text/html"))
}

func TestRegistry_Normalise(t *testing.T) {
	empty := NewRegistry()
	assert.Nil(t, empty.Lookup("text/plain"))
	assert.Equal(t, "raw", empty.Normalise("  raw \n", "text/plain").Body, "unclaimed content is trimmed")

	r := NewRegistry(&stubNormaliser{name: "md", types: []string{"text/markdown"}, priority: 50})
	assert.Equal(t, "x|md", r.Normalise("x", "text/markdown").Body)
}

func TestRegistry_Types(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{
		"*/*",
		"application/xhtml+xml",
		"text/html",
		"text/markdown",
		"text/plain",
		"text/x-markdown",
	}, r.Types())
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.IsType(t, &MarkdownNormaliser{}, r.Lookup("text/markdown"))
	assert.IsType(t, &HTMLNormaliser{}, r.Lookup("text/html"))
	assert.IsType(t, &HTMLNormaliser{}, r.Lookup("application/xhtml+xml"))
	assert.IsType(t, &PlaintextNormaliser{}, r.Lookup("text/plain"))
	assert.IsType(t, &PlaintextNormaliser{}, r.Lookup("application/octet-stream"))
}

func TestMIMETypeForPath(t *testing.T) {
	tests := map[string]string{
		"docs/research/hybrid-search.md": "text/markdown",
		"docs/A.MARKDOWN":                "text/markdown",
		"site/index.html":                "text/html",
		"site/page.xhtml":                "application/xhtml+xml",
		"notes.txt":                      "text/plain",
		"Makefile":                       "text/plain",
	}
	for p, want := range tests {
		assert.Equal(t, want, MIMETypeForPath(p), p)
	}
}
