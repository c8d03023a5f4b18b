package domain

import (
	"errors"
	"testing"
)

func TestNormalizePredicate(t *testing.T) {
	tests := map[string]string{
		"Depends On":   "depends_on",
		"depends_on":   "depends_on",
		" is-part-of ": "is_part_of",
		"CITES":        "cites",
	}
	for in, want := range tests {
		if got := NormalizePredicate(in); got != want {
			t.Errorf("NormalizePredicate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePredicate(t *testing.T) {
	for _, p := range EdgePredicates {
		got, err := ParsePredicate(string(p))
		if err != nil || got != p {
			t.Errorf("ParsePredicate(%q) = %q, %v", p, got, err)
		}
	}

	if _, err := ParsePredicate("inspired_by"); !errors.Is(err, ErrUnknownPredicate) {
		t.Errorf("expected unknown predicate error, got %v", err)
	}
}

func TestPredicateMapper(t *testing.T) {
	m, err := NewPredicateMapper(DefaultPredicateAliases())
	if err != nil {
		t.Fatalf("NewPredicateMapper: %v", err)
	}

	tests := []struct {
		in      string
		want    EdgePredicate
		wantErr error
	}{
		{"cites", PredicateCites, nil},
		{"Depends On", PredicateDependsOn, nil},
		{"extends", PredicateDerivedFrom, nil},
		{"contradicts", PredicateRelatedTo, nil},
		{"references", PredicateCites, nil},
		{"is inspired by", "", ErrUnmappedPredicate},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := m.Map(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrConsistency) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Map(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestNewPredicateMapper_RejectsOpenTarget(t *testing.T) {
	_, err := NewPredicateMapper(map[string]string{"likes": "admires"})
	if !errors.Is(err, ErrUnknownPredicate) {
		t.Errorf("expected unknown predicate error, got %v", err)
	}
}

func TestEdge_Validate(t *testing.T) {
	valid := Edge{SrcType: EndpointEntity, SrcID: "a", DstType: EndpointPattern, DstID: "p", Predicate: PredicateDocuments, Strength: 0.5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid edge, got %v", err)
	}

	bad := valid
	bad.Predicate = "inspired_by"
	if err := bad.Validate(); !errors.Is(err, ErrUnknownPredicate) {
		t.Errorf("expected predicate error, got %v", err)
	}

	bad = valid
	bad.DstType = "concept"
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected endpoint type error, got %v", err)
	}

	bad = valid
	bad.Strength = 2
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected strength error, got %v", err)
	}
}

func TestClaimKey_Dedup(t *testing.T) {
	a := NewClaimKey("doc", "vector-search", "Depends On")
	b := NewClaimKey("doc", "vector-search", "depends_on")
	if a != b {
		t.Errorf("equivalent predicates should share a key: %v vs %v", a, b)
	}
	if a.String() != "doc -[depends_on]-> vector-search" {
		t.Errorf("unexpected key string %q", a.String())
	}
}
