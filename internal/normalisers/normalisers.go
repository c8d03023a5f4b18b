package normalisers

import (
	"strings"
	"sync"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Normaliser = (*PlaintextNormaliser)(nil)
	_ driven.Normaliser = (*MarkdownNormaliser)(nil)
	_ driven.Normaliser = (*HTMLNormaliser)(nil)
)

// PlaintextNormaliser handles plain text content.
type PlaintextNormaliser struct{}

func (n *PlaintextNormaliser) Normalise(content string, mimeType string) driven.Normalised {
	return driven.Normalised{Body: strings.TrimSpace(normaliseLineEndings(content))}
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{"text/plain", "*/*"}
}

func (n *PlaintextNormaliser) Priority() int {
	return 1
}

// MarkdownNormaliser handles Markdown content. YAML frontmatter is removed
// from the body and returned as fields.
type MarkdownNormaliser struct{}

func (n *MarkdownNormaliser) Normalise(content string, mimeType string) driven.Normalised {
	content = normaliseLineEndings(content)
	body, fields := SplitFrontmatter(content)
	return driven.Normalised{Body: collapseBlankLines(body), Fields: fields}
}

func (n *MarkdownNormaliser) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (n *MarkdownNormaliser) Priority() int {
	return 50
}

// SplitFrontmatter separates a leading "---" delimited YAML block from the
// body. Frontmatter that does not parse is still stripped.
func SplitFrontmatter(content string) (string, map[string]any) {
	if !strings.HasPrefix(content, "---\n") {
		return content, nil
	}
	rest := content[len("---\n"):]

	var block, body string
	switch {
	case strings.HasPrefix(rest, "---\n") || rest == "---":
		block, body = "", strings.TrimPrefix(strings.TrimPrefix(rest, "---"), "\n")
	default:
		end := strings.Index(rest, "\n---\n")
		if end == -1 {
			if !strings.HasSuffix(rest, "\n---") {
				return content, nil
			}
			end = len(rest) - len("\n---")
			block, body = rest[:end], ""
		} else {
			block, body = rest[:end], rest[end+len("\n---\n"):]
		}
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		fields = nil
	}
	return body, fields
}

// HTMLNormaliser converts HTML into markdown so that the chunker sees the
// document's headings.
type HTMLNormaliser struct {
	mu        sync.Mutex
	converter *md.Converter
}

// NewHTMLNormaliser creates an HTML normaliser
func NewHTMLNormaliser() *HTMLNormaliser {
	conv := md.NewConverter("", true, nil)
	conv.Remove("script", "style", "noscript", "nav", "footer")
	return &HTMLNormaliser{converter: conv}
}

func (n *HTMLNormaliser) Normalise(content string, mimeType string) driven.Normalised {
	n.mu.Lock()
	out, err := n.converter.ConvertString(content)
	n.mu.Unlock()
	if err != nil {
		// Unparseable markup still has text worth indexing.
		return driven.Normalised{Body: collapseBlankLines(normaliseLineEndings(content))}
	}
	return driven.Normalised{Body: collapseBlankLines(normaliseLineEndings(out))}
}

func (n *HTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *HTMLNormaliser) Priority() int {
	return 50
}

func normaliseLineEndings(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

func collapseBlankLines(content string) string {
	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(content)
}
