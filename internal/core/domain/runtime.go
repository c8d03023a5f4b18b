package domain

import "sync/atomic"

// Capabilities is a point-in-time view of the optional collaborators
type Capabilities struct {
	GraphBackend string `json:"graph_backend"`
	LockBackend  string `json:"lock_backend"`
	Embedding    bool   `json:"embedding"`
	Classifier   bool   `json:"classifier"`
	TextSearch   bool   `json:"text_search"`
}

// RuntimeConfig records the backends chosen at startup and whether the
// embedding service and classifier are currently connected. Safe for
// concurrent use.
type RuntimeConfig struct {
	GraphBackend string // postgres | neo4j
	LockBackend  string // redis | postgres

	embedding  atomic.Bool
	classifier atomic.Bool
}

func NewRuntimeConfig(graphBackend, lockBackend string) *RuntimeConfig {
	return &RuntimeConfig{GraphBackend: graphBackend, LockBackend: lockBackend}
}

func (c *RuntimeConfig) EmbeddingAvailable() bool  { return c.embedding.Load() }
func (c *RuntimeConfig) ClassifierAvailable() bool { return c.classifier.Load() }

func (c *RuntimeConfig) SetEmbeddingAvailable(ok bool)  { c.embedding.Store(ok) }
func (c *RuntimeConfig) SetClassifierAvailable(ok bool) { c.classifier.Store(ok) }

// CanSearch reports whether query text can be embedded. Searches that
// bring their own vector need no embedding service.
func (c *RuntimeConfig) CanSearch() bool {
	return c.EmbeddingAvailable()
}

func (c *RuntimeConfig) Capabilities() Capabilities {
	return Capabilities{
		GraphBackend: c.GraphBackend,
		LockBackend:  c.LockBackend,
		Embedding:    c.EmbeddingAvailable(),
		Classifier:   c.ClassifierAvailable(),
		TextSearch:   c.CanSearch(),
	}
}
