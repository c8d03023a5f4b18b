package domain

import (
	"math"
	"time"
)

// Search limits
const (
	DefaultSearchLimit     = 20
	MaxSearchLimit         = 100
	DefaultTopEntities     = 5
	DefaultChunksPerEntity = 3
)

// SearchFilters restrict the candidate set before ranking. Empty fields
// match everything.
type SearchFilters struct {
	Corpus         string `json:"corpus,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	LifecycleStage string `json:"lifecycle_stage,omitempty"`
}

// ChunkFilters are the filters applicable to chunks. EntityID restricts
// ranking to one entity's own chunks.
type ChunkFilters struct {
	Corpus      string `json:"corpus,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	EntityID    string `json:"entity_id,omitempty"`
}

// ForChunks projects entity filters onto chunk attributes
func (f SearchFilters) ForChunks() ChunkFilters {
	return ChunkFilters{Corpus: f.Corpus, ContentType: f.ContentType}
}

// MatchEntity reports whether e passes the filters
func (f SearchFilters) MatchEntity(e *Entity) bool {
	return (f.Corpus == "" || e.Corpus == f.Corpus) &&
		(f.ContentType == "" || e.ContentType == f.ContentType) &&
		(f.LifecycleStage == "" || e.LifecycleStage == f.LifecycleStage)
}

// MatchChunk reports whether c passes the filters
func (f ChunkFilters) MatchChunk(c *Chunk) bool {
	return (f.Corpus == "" || c.Corpus == f.Corpus) &&
		(f.ContentType == "" || c.ContentType == f.ContentType) &&
		(f.EntityID == "" || c.EntityID == f.EntityID)
}

// SearchQuery carries either query text or a pre-computed vector
type SearchQuery struct {
	Text            string        `json:"text,omitempty"`
	Vector          []float32     `json:"vector,omitempty"`
	Filters         SearchFilters `json:"filters"`
	Limit           int           `json:"limit,omitempty"`
	ContentMaxChars int           `json:"content_max_chars,omitempty"`
}

// HybridQuery configures two-stage retrieval
type HybridQuery struct {
	SearchQuery
	TopEntities     int `json:"top_entities,omitempty"`
	ChunksPerEntity int `json:"chunks_per_entity,omitempty"`
}

// RankedEntity is an entity search hit
type RankedEntity struct {
	Entity *Entity `json:"entity"`
	Score  float64 `json:"score"`
}

// RankedChunk is a chunk search hit
type RankedChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// HybridHit is an entity hit with its best passages nested beneath it
type HybridHit struct {
	Entity *Entity        `json:"entity"`
	Score  float64        `json:"score"`
	Chunks []*RankedChunk `json:"chunks"`
}

// EntitySearchResult is the result of an entity search
type EntitySearchResult struct {
	Query   string          `json:"query,omitempty"`
	Results []*RankedEntity `json:"results"`
	Took    time.Duration   `json:"took" swaggertype:"integer" example:"1500000"`
}

// ChunkSearchResult is the result of a chunk search
type ChunkSearchResult struct {
	Query   string         `json:"query,omitempty"`
	Results []*RankedChunk `json:"results"`
	Took    time.Duration  `json:"took" swaggertype:"integer" example:"1500000"`
}

// HybridSearchResult is the result of a hybrid search
type HybridSearchResult struct {
	Query   string        `json:"query,omitempty"`
	Results []*HybridHit  `json:"results"`
	Took    time.Duration `json:"took" swaggertype:"integer" example:"1500000"`
}

// CorpusCount is the number of entities in one corpus
type CorpusCount struct {
	Corpus string `json:"corpus"`
	Count  int    `json:"count"`
}

// Similarity returns cosine similarity of a and b clamped to [0,1].
// Mismatched or zero vectors score 0.
func Similarity(a, b []float32) float64 {
	return ClampScore(RawSimilarity(a, b))
}

// RawSimilarity is the unclamped cosine similarity in [-1,1], used for
// ranking. Mismatched lengths and zero vectors score -1 so they rank last.
func RawSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ClampScore bounds a similarity into [0,1]
func ClampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// RankBefore orders hits by score desc, then updated_at desc, then id asc
func RankBefore(scoreA float64, updatedA time.Time, idA string, scoreB float64, updatedB time.Time, idB string) bool {
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	if !updatedA.Equal(updatedB) {
		return updatedA.After(updatedB)
	}
	return idA < idB
}

// Truncate shortens content to at most n runes, n <= 0 means no limit
func Truncate(content string, n int) string {
	if n <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n])
}
