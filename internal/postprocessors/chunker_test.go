package postprocessors

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func words(prefix string, n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(w, " ")
}

func TestNewChunker_Defaults(t *testing.T) {
	c := NewChunker(ChunkConfig{})
	if got := c.Config(); got.MaxTokens != 512 || got.Overlap != 0 {
		t.Errorf("unexpected config %+v", got)
	}

	c = NewChunker(ChunkConfig{MaxTokens: 10, Overlap: 10})
	if c.Config().Overlap != 0 {
		t.Errorf("overlap >= max tokens should be disabled, got %d", c.Config().Overlap)
	}

	if got := NewChunker(DefaultChunkConfig()).Config(); got.MaxTokens != 512 || got.Overlap != 50 {
		t.Errorf("unexpected default config %+v", got)
	}
}

func TestChunk_NoHeadings(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())
	passages := c.Chunk("Just a paragraph.\n\nAnd another one.")

	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if len(passages[0].HeadingPath) != 0 {
		t.Errorf("expected empty heading path, got %v", passages[0].HeadingPath)
	}
	if passages[0].Content != "Just a paragraph.\n\nAnd another one." {
		t.Errorf("unexpected content %q", passages[0].Content)
	}
	if passages[0].TokenCount != 6 {
		t.Errorf("expected 6 tokens, got %d", passages[0].TokenCount)
	}
}

func TestChunk_Empty(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())
	if got := c.Chunk("   \n\n"); len(got) != 0 {
		t.Errorf("expected no passages, got %d", len(got))
	}
}

func TestChunk_HeadingHierarchy(t *testing.T) {
	doc := `Preamble text.

# Guide

Intro.

## Install

Steps.

### Linux

apt.

## Usage

Run it.

# Appendix

Notes.`

	c := NewChunker(DefaultChunkConfig())
	passages := c.Chunk(doc)

	want := [][]string{
		nil,
		{"Guide"},
		{"Guide", "Install"},
		{"Guide", "Install", "Linux"},
		{"Guide", "Usage"},
		{"Appendix"},
	}
	if len(passages) != len(want) {
		t.Fatalf("expected %d passages, got %d", len(want), len(passages))
	}
	for i, p := range passages {
		if !reflect.DeepEqual(p.HeadingPath, want[i]) {
			t.Errorf("passage %d: heading path %v, want %v", i, p.HeadingPath, want[i])
		}
		if strings.Contains(p.Content, "#") {
			t.Errorf("passage %d: heading line leaked into content %q", i, p.Content)
		}
	}
}

func TestChunk_EmptySectionKeepsOutline(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())
	passages := c.Chunk("# Parent\n## Child\nbody")

	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if !reflect.DeepEqual(passages[0].HeadingPath, []string{"Parent", "Child"}) {
		t.Errorf("empty parent should survive as ancestor, got %v", passages[0].HeadingPath)
	}
}

func TestChunk_FencedHeadingsAreContent(t *testing.T) {
	doc := "# Real\n```bash\n# not a heading\necho hi\n```\n"
	passages := NewChunker(DefaultChunkConfig()).Chunk(doc)

	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if !strings.Contains(passages[0].Content, "# not a heading") {
		t.Errorf("fenced line should stay in content, got %q", passages[0].Content)
	}
}

func TestChunk_SectionUnderLimitNotSplit(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxTokens: 10, Overlap: 2})
	passages := c.Chunk("# A\n" + words("w", 10))

	if len(passages) != 1 {
		t.Fatalf("a section of exactly T tokens must not split, got %d passages", len(passages))
	}
	if passages[0].Windows != 1 {
		t.Errorf("expected 1 window, got %d", passages[0].Windows)
	}
}

func TestChunk_OverlapWindows(t *testing.T) {
	doc := "# One\n" + words("a", 1200) + "\n# Two\n" + words("b", 1200) + "\n# Three\n" + words("c", 1200)
	c := NewChunker(ChunkConfig{MaxTokens: 512, Overlap: 50})
	passages := c.Chunk(doc)

	if len(passages) != 9 {
		t.Fatalf("expected 3 sections of 3 windows, got %d passages", len(passages))
	}

	wantSizes := []int{512, 512, 276}
	for s, heading := range []string{"One", "Two", "Three"} {
		for w := 0; w < 3; w++ {
			p := passages[s*3+w]
			if !reflect.DeepEqual(p.HeadingPath, []string{heading}) {
				t.Errorf("section %d window %d: heading path %v", s, w, p.HeadingPath)
			}
			if p.TokenCount != wantSizes[w] {
				t.Errorf("section %d window %d: %d tokens, want %d", s, w, p.TokenCount, wantSizes[w])
			}
			if p.Window != w || p.Windows != 3 {
				t.Errorf("section %d window %d: got %d of %d", s, w, p.Window, p.Windows)
			}
		}
		for w := 0; w < 2; w++ {
			prev := strings.Fields(passages[s*3+w].Content)
			next := strings.Fields(passages[s*3+w+1].Content)
			if !reflect.DeepEqual(prev[len(prev)-50:], next[:50]) {
				t.Errorf("section %d: windows %d and %d should share 50 tokens", s, w, w+1)
			}
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	doc := "# A\n" + words("x", 700) + "\n## B\nshort\n# C\n" + words("y", 30)
	c := NewChunker(ChunkConfig{MaxTokens: 100, Overlap: 10})

	first := c.Chunk(doc)
	for i := 0; i < 5; i++ {
		if got := c.Chunk(doc); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d produced a different passage sequence", i)
		}
	}
}

func TestChunk_TokenBound(t *testing.T) {
	doc := "intro " + words("p", 333) + "\n# H\n" + words("q", 1001)
	c := NewChunker(ChunkConfig{MaxTokens: 64, Overlap: 8})
	for i, p := range c.Chunk(doc) {
		if p.TokenCount > 64 {
			t.Errorf("passage %d exceeds MaxTokens: %d", i, p.TokenCount)
		}
		if p.TokenCount != len(strings.Fields(p.Content)) {
			t.Errorf("passage %d token count mismatch", i)
		}
	}
}
