// Package metrics exposes pipeline counters to Prometheus. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sercha_kb"

// Metrics holds the pipeline collectors and their registry
type Metrics struct {
	registry *prometheus.Registry

	documents         *prometheus.CounterVec
	chunks            prometheus.Counter
	embeddingFailures prometheus.Counter
	embeddingsReused  prometheus.Counter
	searchLatency     *prometheus.HistogramVec
	promotions        *prometheus.CounterVec
	episodes          *prometheus.CounterVec
	requests          *prometheus.HistogramVec
}

// New creates and registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents processed by ingestion, by outcome.",
		}, []string{"status"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Chunks written by ingestion.",
		}),
		embeddingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Texts left without a vector after retries.",
		}),
		embeddingsReused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embeddings_reused_total",
			Help:      "Vectors carried over because their text did not change.",
		}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search latency by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_total",
			Help:      "Claim promotion outcomes.",
		}, []string{"outcome"}),
		episodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_recorded_total",
			Help:      "Episodes appended to the lineage log.",
		}, []string{"operation", "result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.documents, m.chunks, m.embeddingFailures, m.embeddingsReused,
		m.searchLatency, m.promotions, m.episodes, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DocumentIngested counts one document outcome
func (m *Metrics) DocumentIngested(status string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(status).Inc()
}

// ChunksWritten counts chunks committed for a document
func (m *Metrics) ChunksWritten(n int) {
	if m == nil {
		return
	}
	m.chunks.Add(float64(n))
}

// EmbeddingFailed counts texts left without vectors
func (m *Metrics) EmbeddingFailed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.embeddingFailures.Add(float64(n))
}

// EmbeddingsReused counts vectors carried over from unchanged text
func (m *Metrics) EmbeddingsReused(n int) {
	if m == nil || n == 0 {
		return
	}
	m.embeddingsReused.Add(float64(n))
}

// ObserveSearch records a search duration
func (m *Metrics) ObserveSearch(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.searchLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// Promotion counts a promotion outcome
func (m *Metrics) Promotion(outcome string) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(outcome).Inc()
}

// Episode counts an appended episode
func (m *Metrics) Episode(operation string, failed bool) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	m.episodes.WithLabelValues(operation, result).Inc()
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, code).Observe(d.Seconds())
}
