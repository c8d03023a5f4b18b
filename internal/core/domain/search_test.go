package domain

import (
	"math"
	"testing"
	"time"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite clamps to zero", []float32{1, 0}, []float32{-1, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRawSimilarity(t *testing.T) {
	if got := RawSimilarity([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite vectors: got %v, want -1", got)
	}
	half := RawSimilarity([]float32{1, 0}, []float32{-1, 1})
	if half <= -1 || half >= 0 {
		t.Errorf("expected a negative similarity above -1, got %v", half)
	}
	if got := RawSimilarity([]float32{0, 0}, []float32{1, 0}); got != -1 {
		t.Errorf("zero vector should rank last, got %v", got)
	}
}

func TestRankBefore(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	if !RankBefore(0.9, older, "b", 0.8, newer, "a") {
		t.Error("higher score should rank first")
	}
	if !RankBefore(0.5, newer, "b", 0.5, older, "a") {
		t.Error("equal scores should break by most recent updated_at")
	}
	if !RankBefore(0.5, older, "a", 0.5, older, "b") {
		t.Error("full ties should break by id")
	}
}

func TestFilters(t *testing.T) {
	e := &Entity{Corpus: "core_kb", ContentType: "guide", LifecycleStage: LifecycleActive}
	if !(SearchFilters{}).MatchEntity(e) {
		t.Error("empty filters should match")
	}
	if (SearchFilters{Corpus: "published"}).MatchEntity(e) {
		t.Error("corpus filter should exclude")
	}
	if (SearchFilters{LifecycleStage: LifecycleArchived}).MatchEntity(e) {
		t.Error("lifecycle filter should exclude")
	}

	f := SearchFilters{Corpus: "core_kb", ContentType: "guide", LifecycleStage: LifecycleDraft}.ForChunks()
	c := &Chunk{Corpus: "core_kb", ContentType: "guide", EntityID: "doc"}
	if !f.MatchChunk(c) {
		t.Error("lifecycle stage does not apply to chunks")
	}
	f.EntityID = "other"
	if f.MatchChunk(c) {
		t.Error("entity restriction should exclude")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo" {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 0); got != "short" {
		t.Errorf("zero should not truncate, got %q", got)
	}
}
