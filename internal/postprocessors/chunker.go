// Package postprocessors turns normalised document text into passages.
package postprocessors

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Chunker = (*Chunker)(nil)

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// MaxTokens is the largest section kept whole (T)
	MaxTokens int

	// Overlap is the number of tokens shared by adjacent windows (O)
	Overlap int
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens: 512,
		Overlap:   50,
	}
}

// Chunker splits markdown at heading boundaries, then splits any section
// longer than MaxTokens into overlapping windows. A token is a
// whitespace-delimited word.
type Chunker struct {
	config ChunkConfig
}

// NewChunker creates a new chunker with the given config.
// A non-positive MaxTokens falls back to the default; an overlap that
// would stall the window disables overlap.
func NewChunker(config ChunkConfig) *Chunker {
	def := DefaultChunkConfig()
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	if config.Overlap < 0 || config.Overlap >= config.MaxTokens {
		config.Overlap = 0
	}
	return &Chunker{config: config}
}

// Config returns the effective configuration
func (c *Chunker) Config() ChunkConfig {
	return c.config
}

var headingPattern = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)[ \t]*#*[ \t]*$`)

type heading struct {
	level int
	text  string
}

type section struct {
	path []string
	body string
}

// Chunk splits text into passages in document order.
func (c *Chunker) Chunk(text string) []domain.Passage {
	var passages []domain.Passage
	for _, s := range splitSections(text) {
		passages = append(passages, c.window(s)...)
	}
	return passages
}

// splitSections cuts text at headings outside fenced code blocks. Each
// section carries the path of headings from the root to it.
func splitSections(text string) []section {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		sections []section
		stack    []heading
		body     []string
		fence    string
	)

	flush := func() {
		content := normalizeWhitespace(strings.Join(body, "\n"))
		body = body[:0]
		if content == "" {
			return
		}
		var path []string
		for _, h := range stack {
			path = append(path, h.text)
		}
		sections = append(sections, section{path: path, body: content})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if marker := fenceMarker(trimmed); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(trimmed, fence):
				fence = ""
			}
			body = append(body, line)
			continue
		}
		if fence == "" {
			if m := headingPattern.FindStringSubmatch(trimmed); m != nil && line == strings.TrimLeft(line, " \t") {
				flush()
				level := len(m[1])
				for len(stack) > 0 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				stack = append(stack, heading{level: level, text: m[2]})
				continue
			}
		}
		body = append(body, line)
	}
	flush()
	return sections
}

func fenceMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "```"):
		return "```"
	case strings.HasPrefix(line, "~~~"):
		return "~~~"
	}
	return ""
}

// window emits a section whole, or as windows of MaxTokens tokens that
// advance by MaxTokens-Overlap so adjacent windows share Overlap tokens.
func (c *Chunker) window(s section) []domain.Passage {
	tokens := strings.Fields(s.body)
	if len(tokens) <= c.config.MaxTokens {
		return []domain.Passage{{
			HeadingPath: s.path,
			Content:     s.body,
			TokenCount:  len(tokens),
			Window:      0,
			Windows:     1,
		}}
	}

	stride := c.config.MaxTokens - c.config.Overlap
	var out []domain.Passage
	for start := 0; ; start += stride {
		end := start + c.config.MaxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, domain.Passage{
			HeadingPath: s.path,
			Content:     strings.Join(tokens[start:end], " "),
			TokenCount:  end - start,
			Window:      len(out),
		})
		if end == len(tokens) {
			break
		}
	}
	for i := range out {
		out[i].Windows = len(out)
	}
	return out
}

// normalizeWhitespace trims trailing spaces and collapses runs of blank lines
func normalizeWhitespace(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
