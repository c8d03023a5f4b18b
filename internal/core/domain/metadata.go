package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata holds the known entity metadata fields plus an open map for
// extension fields. It serializes as one flat JSON object.
type Metadata struct {
	Summary            string         `json:"summary,omitempty"`
	PrimaryConcept     string         `json:"primary_concept,omitempty"`
	SubjectAreas       []string       `json:"subject_area,omitempty"`
	BroaderConcepts    []string       `json:"broader_concepts,omitempty"`
	NarrowerConcepts   []string       `json:"narrower_concepts,omitempty"`
	ConceptOwnership   string         `json:"concept_ownership,omitempty"`
	PatternType        string         `json:"pattern_type,omitempty"`
	WordCount          int            `json:"word_count,omitempty"`
	ReadingTimeMinutes int            `json:"reading_time_minutes,omitempty"`
	DetectedEdges      []DetectedEdge `json:"detected_edges,omitempty"`

	// Extra carries fields without a typed home
	Extra map[string]any `json:"-"`
}

// metadataFields is the wire shape of the typed fields
type metadataFields struct {
	Summary            string         `json:"summary,omitempty"`
	PrimaryConcept     string         `json:"primary_concept,omitempty"`
	SubjectAreas       []string       `json:"subject_area,omitempty"`
	BroaderConcepts    []string       `json:"broader_concepts,omitempty"`
	NarrowerConcepts   []string       `json:"narrower_concepts,omitempty"`
	ConceptOwnership   string         `json:"concept_ownership,omitempty"`
	PatternType        string         `json:"pattern_type,omitempty"`
	WordCount          int            `json:"word_count,omitempty"`
	ReadingTimeMinutes int            `json:"reading_time_minutes,omitempty"`
	DetectedEdges      []DetectedEdge `json:"detected_edges,omitempty"`
}

var knownMetadataKeys = map[string]bool{
	"summary":              true,
	"primary_concept":      true,
	"subject_area":         true,
	"broader_concepts":     true,
	"narrower_concepts":    true,
	"concept_ownership":    true,
	"pattern_type":         true,
	"word_count":           true,
	"reading_time_minutes": true,
	"detected_edges":       true,
}

// MarshalJSON flattens Extra next to the typed fields. Typed fields win on
// key collisions.
func (m Metadata) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(metadataFields{
		Summary:            m.Summary,
		PrimaryConcept:     m.PrimaryConcept,
		SubjectAreas:       m.SubjectAreas,
		BroaderConcepts:    m.BroaderConcepts,
		NarrowerConcepts:   m.NarrowerConcepts,
		ConceptOwnership:   m.ConceptOwnership,
		PatternType:        m.PatternType,
		WordCount:          m.WordCount,
		ReadingTimeMinutes: m.ReadingTimeMinutes,
		DetectedEdges:      m.DetectedEdges,
	})
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return typed, nil
	}

	out := make(map[string]json.RawMessage, len(m.Extra)+len(knownMetadataKeys))
	for k, v := range m.Extra {
		if knownMetadataKeys[k] {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata %q: %w", k, err)
		}
		out[k] = raw
	}
	var typedMap map[string]json.RawMessage
	if err := json.Unmarshal(typed, &typedMap); err != nil {
		return nil, err
	}
	for k, v := range typedMap {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON validates known fields and keeps the rest in Extra
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var typed metadataFields
	if err := json.Unmarshal(data, &typed); err != nil {
		return fmt.Errorf("%w: metadata: %v", ErrValidation, err)
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("%w: metadata: %v", ErrValidation, err)
	}

	*m = Metadata{
		Summary:            typed.Summary,
		PrimaryConcept:     typed.PrimaryConcept,
		SubjectAreas:       typed.SubjectAreas,
		BroaderConcepts:    typed.BroaderConcepts,
		NarrowerConcepts:   typed.NarrowerConcepts,
		ConceptOwnership:   typed.ConceptOwnership,
		PatternType:        typed.PatternType,
		WordCount:          typed.WordCount,
		ReadingTimeMinutes: typed.ReadingTimeMinutes,
		DetectedEdges:      typed.DetectedEdges,
	}
	for k, v := range all {
		if knownMetadataKeys[k] {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = v
	}
	return nil
}

// Merge shallow-merges newer over m. Any field set in newer replaces the
// field in m; unset fields keep m's value. Extra keys merge one level deep.
func (m Metadata) Merge(newer Metadata) Metadata {
	out := m
	if newer.Summary != "" {
		out.Summary = newer.Summary
	}
	if newer.PrimaryConcept != "" {
		out.PrimaryConcept = newer.PrimaryConcept
	}
	if newer.SubjectAreas != nil {
		out.SubjectAreas = newer.SubjectAreas
	}
	if newer.BroaderConcepts != nil {
		out.BroaderConcepts = newer.BroaderConcepts
	}
	if newer.NarrowerConcepts != nil {
		out.NarrowerConcepts = newer.NarrowerConcepts
	}
	if newer.ConceptOwnership != "" {
		out.ConceptOwnership = newer.ConceptOwnership
	}
	if newer.PatternType != "" {
		out.PatternType = newer.PatternType
	}
	if newer.WordCount != 0 {
		out.WordCount = newer.WordCount
	}
	if newer.ReadingTimeMinutes != 0 {
		out.ReadingTimeMinutes = newer.ReadingTimeMinutes
	}
	if newer.DetectedEdges != nil {
		out.DetectedEdges = newer.DetectedEdges
	}

	if len(m.Extra) > 0 || len(newer.Extra) > 0 {
		out.Extra = make(map[string]any, len(m.Extra)+len(newer.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
		for k, v := range newer.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// DefaultDetectedEdgeStrength applies when a classifier omits strength
const DefaultDetectedEdgeStrength = 1.0

// DetectedEdge is an unvalidated relationship proposal owned by the entity
// whose metadata carries it. Its predicate is free-form.
type DetectedEdge struct {
	Predicate string  `json:"predicate"`
	TargetID  string  `json:"target_id"`
	Strength  float64 `json:"strength,omitempty"`
	Rationale string  `json:"rationale,omitempty"`
}

// UnmarshalJSON accepts target_concept as an alias for target_id
func (e *DetectedEdge) UnmarshalJSON(data []byte) error {
	var raw struct {
		Predicate     string   `json:"predicate"`
		TargetID      string   `json:"target_id"`
		TargetConcept string   `json:"target_concept"`
		Strength      *float64 `json:"strength"`
		Rationale     string   `json:"rationale"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = DetectedEdge{Predicate: raw.Predicate, TargetID: raw.TargetID, Rationale: raw.Rationale}
	if e.TargetID == "" {
		e.TargetID = raw.TargetConcept
	}
	if raw.Strength != nil {
		e.Strength = *raw.Strength
	} else {
		e.Strength = DefaultDetectedEdgeStrength
	}
	return nil
}

// Normalize trims the proposal and checks its shape
func (e DetectedEdge) Normalize() (DetectedEdge, error) {
	e.Predicate = strings.TrimSpace(e.Predicate)
	e.TargetID = strings.TrimSpace(e.TargetID)
	if e.Predicate == "" || e.TargetID == "" {
		return e, fmt.Errorf("%w: detected edge needs predicate and target", ErrValidation)
	}
	if e.Strength < 0 || e.Strength > 1 {
		return e, fmt.Errorf("%w: detected edge strength %v outside [0,1]", ErrValidation, e.Strength)
	}
	return e, nil
}
