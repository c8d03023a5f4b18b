package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.DocumentIngested("succeeded")
	m.DocumentIngested("succeeded")
	m.DocumentIngested("failed")
	m.ChunksWritten(7)
	m.EmbeddingFailed(2)
	m.EmbeddingFailed(0)
	m.Promotion("committed")
	m.Episode("ingest", false)
	m.Episode("ingest", true)

	if got := testutil.ToFloat64(m.documents.WithLabelValues("succeeded")); got != 2 {
		t.Errorf("expected 2 succeeded documents, got %v", got)
	}
	if got := testutil.ToFloat64(m.chunks); got != 7 {
		t.Errorf("expected 7 chunks, got %v", got)
	}
	if got := testutil.ToFloat64(m.embeddingFailures); got != 2 {
		t.Errorf("expected 2 embedding failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.episodes.WithLabelValues("ingest", "error")); got != 1 {
		t.Errorf("expected 1 failed ingest episode, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.DocumentIngested("succeeded")
	m.ChunksWritten(1)
	m.EmbeddingFailed(1)
	m.EmbeddingsReused(1)
	m.ObserveSearch("hybrid", time.Millisecond)
	m.Promotion("rejected")
	m.Episode("embed", false)
	m.ObserveRequest("GET /health", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveSearch("entities", 20*time.Millisecond)
	m.ObserveRequest("POST /api/v1/search/hybrid", "200", 30*time.Millisecond)
	m.ObserveRequest("POST /api/v1/search/hybrid", "400", time.Millisecond)

	if n := testutil.CollectAndCount(m.requests); n != 2 {
		t.Errorf("expected one series per route and code, got %d", n)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sercha_kb_search_duration_seconds") {
		t.Error("expected search histogram in exposition")
	}
	if !strings.Contains(rec.Body.String(), `sercha_kb_http_request_duration_seconds_count{code="400",route="POST /api/v1/search/hybrid"} 1`) {
		t.Error("expected request histogram in exposition")
	}
}
