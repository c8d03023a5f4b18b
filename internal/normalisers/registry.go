package normalisers

import (
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects a normaliser by media type. It is fixed at construction
// and safe for concurrent use.
type Registry struct {
	// normalisers are ordered by descending priority, then registration order
	normalisers []driven.Normaliser
}

// NewRegistry builds a registry over normalisers
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	ordered := append([]driven.Normaliser(nil), normalisers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() > ordered[j].Priority()
	})
	return &Registry{normalisers: ordered}
}

// DefaultRegistry covers markdown, HTML and plain text. Plain text also
// accepts any type nothing else claims.
func DefaultRegistry() *Registry {
	return NewRegistry(&PlaintextNormaliser{}, &MarkdownNormaliser{}, NewHTMLNormaliser())
}

// Lookup returns the highest priority normaliser accepting mimeType, or nil
func (r *Registry) Lookup(mimeType string) driven.Normaliser {
	mediaType := baseMediaType(mimeType)
	for _, n := range r.normalisers {
		if accepts(n.SupportedTypes(), mediaType) {
			return n
		}
	}
	return nil
}

// Normalise implements driven.NormaliserRegistry
func (r *Registry) Normalise(content, mimeType string) driven.Normalised {
	if n := r.Lookup(mimeType); n != nil {
		return n.Normalise(content, mimeType)
	}
	return driven.Normalised{Body: strings.TrimSpace(content)}
}

// Types lists every declared media type, sorted
func (r *Registry) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedTypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// baseMediaType drops parameters such as charset and lowercases the type
func baseMediaType(mimeType string) string {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func accepts(supported []string, mediaType string) bool {
	for _, s := range supported {
		s = strings.ToLower(s)
		switch {
		case s == mediaType, s == "*/*":
			return true
		case strings.HasSuffix(s, "/*") && strings.HasPrefix(mediaType, strings.TrimSuffix(s, "*")):
			return true
		}
	}
	return false
}

var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".txt":      "text/plain",
	".rst":      "text/plain",
}

// MIMETypeForPath guesses a media type from the file extension. Unknown
// extensions are plain text.
func MIMETypeForPath(p string) string {
	if t, ok := extensionTypes[strings.ToLower(path.Ext(p))]; ok {
		return t
	}
	return "text/plain"
}
