package domain

import (
	"fmt"
	"time"
)

// EntityType is the closed discriminator for entities
type EntityType string

const (
	EntityTypeContent    EntityType = "content"
	EntityTypeCapability EntityType = "capability"
	EntityTypeRepository EntityType = "repository"
)

// Valid reports whether t is a member of the closed set
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeContent, EntityTypeCapability, EntityTypeRepository:
		return true
	}
	return false
}

// Entity is a whole-document record. Its embedding is built from metadata,
// never from content.
type Entity struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	EntityType       EntityType `json:"entity_type"`
	Corpus           string     `json:"corpus"`
	ContentType      string     `json:"content_type"`
	LifecycleStage   string     `json:"lifecycle_stage"`
	SourcePath       string     `json:"source_path"`
	Metadata         Metadata   `json:"metadata"`
	Embedding        []float32  `json:"embedding,omitempty"`
	PrimaryPatternID string     `json:"primary_pattern_id,omitempty"`
	ContentHash      string     `json:"content_hash"`
	ChunkCount       int        `json:"chunk_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// UpsertOnto resolves the row that results from writing e over existing.
// Non-structural fields are overwritten, metadata is shallow-merged with e's
// values taking precedence, and entity_type may not change. A different
// source path deriving the same ID is a collision, not an update.
func (e *Entity) UpsertOnto(existing *Entity, now time.Time) (*Entity, error) {
	if !e.EntityType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, e.EntityType)
	}

	merged := *e
	merged.UpdatedAt = now
	if existing == nil {
		merged.CreatedAt = now
		return &merged, nil
	}

	if existing.SourcePath != "" && e.SourcePath != "" && existing.SourcePath != e.SourcePath {
		return nil, fmt.Errorf("%w: %s is owned by %s, got %s", ErrEntityIDCollision, existing.ID, existing.SourcePath, e.SourcePath)
	}
	if existing.EntityType != e.EntityType {
		return nil, fmt.Errorf("%w: %s is %s, got %s", ErrEntityTypeChanged, existing.ID, existing.EntityType, e.EntityType)
	}
	merged.CreatedAt = existing.CreatedAt
	merged.Metadata = existing.Metadata.Merge(e.Metadata)
	if merged.PrimaryPatternID == "" {
		merged.PrimaryPatternID = existing.PrimaryPatternID
	}
	return &merged, nil
}

// SourceDocument is a document handed to the indexer by a source
type SourceDocument struct {
	Path             string         `json:"path"`
	Content          string         `json:"content"`
	MimeType         string         `json:"mime_type,omitempty"`
	EntityType       EntityType     `json:"entity_type,omitempty"`
	Title            string         `json:"title,omitempty"`
	PrimaryPatternID string         `json:"primary_pattern_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Classification is the partial metadata returned by a classifier.
// Every field is optional.
type Classification struct {
	ContentType      string         `json:"content_type,omitempty"`
	PrimaryConcept   string         `json:"primary_concept,omitempty"`
	BroaderConcepts  []string       `json:"broader_concepts,omitempty"`
	NarrowerConcepts []string       `json:"narrower_concepts,omitempty"`
	SubjectAreas     []string       `json:"subject_area,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	ConceptOwnership string         `json:"concept_ownership,omitempty"`
	DetectedEdges    []DetectedEdge `json:"detected_edges,omitempty"`

	// Provenance, not part of metadata
	Model      string      `json:"-"`
	PromptHash string      `json:"-"`
	Usage      *TokenUsage `json:"-"`
}

// Metadata returns the classification as entity metadata.
// Detected edges failing validation are dropped.
func (c *Classification) Metadata() Metadata {
	if c == nil {
		return Metadata{}
	}
	m := Metadata{
		Summary:          c.Summary,
		PrimaryConcept:   c.PrimaryConcept,
		SubjectAreas:     c.SubjectAreas,
		BroaderConcepts:  c.BroaderConcepts,
		NarrowerConcepts: c.NarrowerConcepts,
		ConceptOwnership: c.ConceptOwnership,
	}
	for _, e := range c.DetectedEdges {
		if norm, err := e.Normalize(); err == nil {
			m.DetectedEdges = append(m.DetectedEdges, norm)
		}
	}
	return m
}
