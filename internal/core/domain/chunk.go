package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace scopes chunk identifiers
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sercha-kb/chunk"))

// Chunk is a passage owned by one entity. Its embedding is built from
// Content only.
type Chunk struct {
	ID          string    `json:"id"`
	EntityID    string    `json:"entity_id"`
	Position    int       `json:"position"`
	TotalChunks int       `json:"total_chunks"`
	HeadingPath []string  `json:"heading_path"`
	Content     string    `json:"content"`
	TokenCount  int       `json:"token_count"`
	Corpus      string    `json:"corpus"`
	ContentType string    `json:"content_type"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChunkID returns the identifier of the chunk at position within entityID.
// Stable across re-ingestion of the same document.
func ChunkID(entityID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(entityID+"#"+strconv.Itoa(position))).String()
}

// Label renders "k of n" for display
func (c *Chunk) Label() string {
	return strconv.Itoa(c.Position+1) + " of " + strconv.Itoa(c.TotalChunks)
}

// Heading joins the heading path for display
func (c *Chunk) Heading() string {
	return strings.Join(c.HeadingPath, " > ")
}

// Passage is a chunker output before it becomes a Chunk
type Passage struct {
	HeadingPath []string
	Content     string
	TokenCount  int

	// Window is the sub-window index within an oversized section, and
	// Windows the number of sub-windows (1 when the section was not split).
	Window  int
	Windows int
}

// SameText reports whether p would produce a chunk identical in text to c
func (p Passage) SameText(c *Chunk) bool {
	if c == nil || p.Content != c.Content || len(p.HeadingPath) != len(c.HeadingPath) {
		return false
	}
	for i := range p.HeadingPath {
		if p.HeadingPath[i] != c.HeadingPath[i] {
			return false
		}
	}
	return true
}
