package postgres

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// predicates accumulates WHERE clauses with numbered placeholders
type predicates struct {
	clauses []string
	args    []any
}

// bind appends an argument and returns its placeholder
func (p *predicates) bind(v any) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

// raw adds a clause that needs no argument
func (p *predicates) raw(clause string) {
	p.clauses = append(p.clauses, clause)
}

// eq adds column = value, skipping empty values
func (p *predicates) eq(column, value string) {
	if value == "" {
		return
	}
	p.clauses = append(p.clauses, column+" = "+p.bind(value))
}

func (p *predicates) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(p.clauses, " AND ")
}

func entityFilters(p *predicates, f domain.SearchFilters) {
	p.eq("corpus", f.Corpus)
	p.eq("content_type", f.ContentType)
	p.eq("lifecycle_stage", f.LifecycleStage)
}

func chunkFilters(p *predicates, f domain.ChunkFilters) {
	p.eq("c.corpus", f.Corpus)
	p.eq("c.content_type", f.ContentType)
	p.eq("c.entity_id", f.EntityID)
}

// scoreExpr is the raw cosine similarity to the vector bound at $1, in
// [-1,1]. Callers clamp after ranking. A NaN distance from a zero vector
// becomes -1.
func scoreExpr(column string) string {
	return "1 - COALESCE(NULLIF(" + column + " <=> $1::vector, 'NaN'::float8), 2)"
}
