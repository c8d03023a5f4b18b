package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestVector_Value(t *testing.T) {
	v, err := Vector{1, 0.5, -2.25}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[1,0.5,-2.25]", v)

	v, err = Vector(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestVector_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    Vector
		wantErr bool
	}{
		{"text", "[1,2,3]", Vector{1, 2, 3}, false},
		{"bytes with spaces", []byte("[0.25, -1]"), Vector{0.25, -1}, false},
		{"null", nil, nil, false},
		{"empty", "[]", Vector{}, false},
		{"missing brackets", "1,2", nil, true},
		{"bad element", "[1,x]", nil, true},
		{"wrong type", 42, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Vector
			err := v.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestVector_RoundTrip(t *testing.T) {
	in := Vector{0.1, 0.2, 0.3}
	text, err := in.Value()
	require.NoError(t, err)

	var out Vector
	require.NoError(t, out.Scan(text))
	assert.Equal(t, in, out)
}

func TestPredicates(t *testing.T) {
	p := &predicates{}
	assert.Equal(t, "$1", p.bind([]float32{1}))
	p.raw("embedding IS NOT NULL")
	entityFilters(p, domain.SearchFilters{Corpus: "research_ai", LifecycleStage: "stable"})

	assert.Equal(t, "WHERE embedding IS NOT NULL AND corpus = $2 AND lifecycle_stage = $3", p.where())
	assert.Equal(t, []any{[]float32{1}, "research_ai", "stable"}, p.args)

	c := &predicates{}
	chunkFilters(c, domain.ChunkFilters{EntityID: "hybrid-search"})
	assert.Equal(t, "WHERE c.entity_id = $1", c.where())

	assert.Empty(t, (&predicates{}).where())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{sqlstateSerialization, domain.ErrTransaction},
		{sqlstateDeadlock, domain.ErrTransaction},
		{sqlstateLockNotAvailable, domain.ErrTransaction},
		{sqlstateForeignKeyViolation, domain.ErrConsistency},
		{sqlstateUniqueViolation, domain.ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := mapError(fmt.Errorf("exec: %w", &pq.Error{Code: pq.ErrorCode(tt.code)}))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	plain := errors.New("boom")
	assert.Same(t, plain, mapError(plain))
	assert.Nil(t, mapError(nil))

	categorized := fmt.Errorf("%w: bad", domain.ErrValidation)
	assert.Same(t, categorized, mapError(categorized))
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, notFound(fmt.Errorf("scan: %w", sql.ErrNoRows)), domain.ErrNotFound)
}

func TestAdvisoryKey(t *testing.T) {
	assert.Equal(t, advisoryKey("entity:a"), advisoryKey("entity:a"))
	assert.NotEqual(t, advisoryKey("entity:a"), advisoryKey("entity:b"))
}

func TestScoreExpr(t *testing.T) {
	expr := scoreExpr("c.embedding")
	assert.Equal(t, "1 - COALESCE(NULLIF(c.embedding <=> $1::vector, 'NaN'::float8), 2)", expr)
	assert.NotContains(t, expr, "GREATEST", "ranking uses the unclamped score")
}

func TestUpsertEdgeSQL_KeepsCommittedStrength(t *testing.T) {
	update := upsertEdgeSQL[strings.Index(upsertEdgeSQL, "DO UPDATE SET"):strings.Index(upsertEdgeSQL, "RETURNING")]
	assert.Contains(t, update, "metadata = edges.metadata || EXCLUDED.metadata")
	assert.NotContains(t, update, "strength", "only metadata is enriched after commit")
}
