package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EdgePredicate is the closed set of committed relationship types
type EdgePredicate string

const (
	PredicateDerivedFrom EdgePredicate = "derived_from"
	PredicateCites       EdgePredicate = "cites"
	PredicateVersionOf   EdgePredicate = "version_of"
	PredicatePartOf      EdgePredicate = "part_of"
	PredicateDocuments   EdgePredicate = "documents"
	PredicateDependsOn   EdgePredicate = "depends_on"
	PredicateRelatedTo   EdgePredicate = "related_to"
	PredicateImplements  EdgePredicate = "implements"
	PredicateDeliveredBy EdgePredicate = "delivered_by"
	PredicateIntegration EdgePredicate = "integration"
)

// EdgePredicates lists the closed set in declaration order
var EdgePredicates = []EdgePredicate{
	PredicateDerivedFrom, PredicateCites, PredicateVersionOf, PredicatePartOf, PredicateDocuments,
	PredicateDependsOn, PredicateRelatedTo, PredicateImplements, PredicateDeliveredBy, PredicateIntegration,
}

// Valid reports whether p is a member of the closed set
func (p EdgePredicate) Valid() bool {
	for _, known := range EdgePredicates {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePredicate converts s to a committed predicate without aliasing
func ParsePredicate(s string) (EdgePredicate, error) {
	p := EdgePredicate(NormalizePredicate(s))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPredicate, s)
	}
	return p, nil
}

// NormalizePredicate lowercases a free-form predicate and joins words with
// underscores, so "Depends On" and "depends_on" name the same claim.
func NormalizePredicate(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.Join(fields, "_")
}

// EndpointType identifies what an edge endpoint refers to
type EndpointType string

const (
	EndpointEntity  EndpointType = "entity"
	EndpointPattern EndpointType = "pattern"
	EndpointSurface EndpointType = "surface"
)

// Valid reports whether t is a known endpoint type
func (t EndpointType) Valid() bool {
	return t == EndpointEntity || t == EndpointPattern || t == EndpointSurface
}

// Edge is a committed, typed relationship. Predicate and endpoints are fixed
// once committed; only Metadata and Strength may be enriched.
type Edge struct {
	ID        string         `json:"id"`
	SrcType   EndpointType   `json:"src_type"`
	SrcID     string         `json:"src_id"`
	DstType   EndpointType   `json:"dst_type"`
	DstID     string         `json:"dst_id"`
	Predicate EdgePredicate  `json:"predicate"`
	Strength  float64        `json:"strength"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Validate checks the edge before any write
func (e *Edge) Validate() error {
	if !e.Predicate.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPredicate, e.Predicate)
	}
	if !e.SrcType.Valid() || !e.DstType.Valid() {
		return fmt.Errorf("%w: endpoint types %q -> %q", ErrValidation, e.SrcType, e.DstType)
	}
	if e.SrcID == "" || e.DstID == "" {
		return fmt.Errorf("%w: edge endpoints must be set", ErrValidation)
	}
	if e.Strength < 0 || e.Strength > 1 {
		return fmt.Errorf("%w: edge strength %v outside [0,1]", ErrValidation, e.Strength)
	}
	return nil
}

// SameIdentity reports whether e and other share endpoints and predicate
func (e *Edge) SameIdentity(other *Edge) bool {
	return e.SrcType == other.SrcType && e.SrcID == other.SrcID &&
		e.DstType == other.DstType && e.DstID == other.DstID &&
		e.Predicate == other.Predicate
}

// ClaimStatus is the promotion state of a relationship claim
type ClaimStatus string

const (
	ClaimProposed    ClaimStatus = "proposed"
	ClaimExploratory ClaimStatus = "exploratory"
	ClaimCommitted   ClaimStatus = "committed"
	ClaimRejected    ClaimStatus = "rejected"
)

// Terminal reports whether no further transition is allowed
func (s ClaimStatus) Terminal() bool {
	return s == ClaimCommitted || s == ClaimRejected
}

// ClaimKey deduplicates relationship claims
type ClaimKey struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Predicate string `json:"predicate"`
}

// NewClaimKey normalizes the predicate so equivalent spellings collide
func NewClaimKey(source, target, predicate string) ClaimKey {
	return ClaimKey{Source: source, Target: target, Predicate: NormalizePredicate(predicate)}
}

func (k ClaimKey) String() string {
	return k.Source + " -[" + k.Predicate + "]-> " + k.Target
}

// ProposedRelation is a claim in the exploration graph. Its predicate is
// free-form; see CommittedRelation for the governed form.
type ProposedRelation struct {
	Key       ClaimKey    `json:"key"`
	Strength  float64     `json:"strength"`
	Rationale string      `json:"rationale,omitempty"`
	Status    ClaimStatus `json:"status"`
}

// CommittedRelation is a claim after predicate mapping
type CommittedRelation struct {
	Key       ClaimKey      `json:"key"`
	Predicate EdgePredicate `json:"predicate"`
}

// ClaimDecision is the durable review outcome for a claim. Rebuilding the
// exploration layer restores status from decisions.
type ClaimDecision struct {
	Key       ClaimKey    `json:"key"`
	Status    ClaimStatus `json:"status"`
	EdgeID    string      `json:"edge_id,omitempty"`
	Reviewer  string      `json:"reviewer,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	DecidedAt time.Time   `json:"decided_at"`
}

// GraphNode is a node in the exploration graph
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"` // entity | concept
	Title string `json:"title,omitempty"`
}

// Neighbor is a direct neighbor of a graph node
type Neighbor struct {
	Node      GraphNode   `json:"node"`
	Predicate string      `json:"predicate"`
	Direction string      `json:"direction"` // outgoing | incoming
	Strength  float64     `json:"strength"`
	Status    ClaimStatus `json:"status"`
}

// PredicateMapper is the total mapping from free-form predicates to the
// closed set. Members of the closed set map to themselves; anything else
// must have an alias or the mapping fails.
type PredicateMapper struct {
	aliases map[string]EdgePredicate
}

// DefaultPredicateAliases maps common free-form predicates
func DefaultPredicateAliases() map[string]string {
	return map[string]string{
		"extends":         string(PredicateDerivedFrom),
		"based_on":        string(PredicateDerivedFrom),
		"contradicts":     string(PredicateRelatedTo),
		"related":         string(PredicateRelatedTo),
		"relates_to":      string(PredicateRelatedTo),
		"references":      string(PredicateCites),
		"refers_to":       string(PredicateCites),
		"depends":         string(PredicateDependsOn),
		"requires":        string(PredicateDependsOn),
		"is_part_of":      string(PredicatePartOf),
		"belongs_to":      string(PredicatePartOf),
		"describes":       string(PredicateDocuments),
		"explains":        string(PredicateDocuments),
		"integrates":      string(PredicateIntegration),
		"integrates_with": string(PredicateIntegration),
	}
}

// NewPredicateMapper validates aliases. Every alias target must be in the
// closed set.
func NewPredicateMapper(aliases map[string]string) (*PredicateMapper, error) {
	m := &PredicateMapper{aliases: make(map[string]EdgePredicate, len(aliases))}
	for from, to := range aliases {
		p, err := ParsePredicate(to)
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", from, err)
		}
		m.aliases[NormalizePredicate(from)] = p
	}
	return m, nil
}

// Map converts a free-form predicate into a committed predicate
func (m *PredicateMapper) Map(free string) (EdgePredicate, error) {
	norm := NormalizePredicate(free)
	if p := EdgePredicate(norm); p.Valid() {
		return p, nil
	}
	if m != nil {
		if p, ok := m.aliases[norm]; ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnmappedPredicate, free)
}

// Aliases returns the alias table sorted by source predicate
func (m *PredicateMapper) Aliases() [][2]string {
	out := make([][2]string, 0, len(m.aliases))
	for k, v := range m.aliases {
		out = append(out, [2]string{k, string(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
