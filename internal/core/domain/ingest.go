package domain

// DocumentStatus is the per-document outcome of a batch
type DocumentStatus string

const (
	DocumentSucceeded DocumentStatus = "succeeded"
	DocumentFailed    DocumentStatus = "failed"
	DocumentSkipped   DocumentStatus = "skipped"
)

// IngestResult reports one ingested document
type IngestResult struct {
	EntityID string `json:"entity_id"`
	Chunks   int    `json:"chunk_count"`
	Created  bool   `json:"created"`

	// PendingEmbeddings counts vectors left null after collaborator failures
	PendingEmbeddings int `json:"pending_embeddings"`

	// ReusedEmbeddings counts vectors carried over from unchanged text
	ReusedEmbeddings int    `json:"reused_embeddings"`
	EpisodeID        string `json:"episode_id"`

	// Relations counts detected edges mirrored into the exploration graph
	Relations int `json:"relations"`

	// GraphError is set when the exploration graph could not be updated.
	// The document itself is committed.
	GraphError string `json:"graph_error,omitempty"`
}

// DocumentOutcome is one line of a batch report
type DocumentOutcome struct {
	Path     string         `json:"path"`
	EntityID string         `json:"entity_id,omitempty"`
	Status   DocumentStatus `json:"status"`
	Chunks   int            `json:"chunk_count,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// BatchResult reports a batch ingestion
type BatchResult struct {
	RunID     string            `json:"run_id"`
	Status    RunStatus         `json:"status"`
	Documents []DocumentOutcome `json:"documents"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
}

// Tally recounts the per-status totals
func (r *BatchResult) Tally() {
	r.Succeeded, r.Failed, r.Skipped = 0, 0, 0
	for _, d := range r.Documents {
		switch d.Status {
		case DocumentSucceeded:
			r.Succeeded++
		case DocumentFailed:
			r.Failed++
		case DocumentSkipped:
			r.Skipped++
		}
	}
}

// EmbedReport summarizes a pending-embedding repair pass
type EmbedReport struct {
	EntitiesEmbedded int `json:"entities_embedded"`
	ChunksEmbedded   int `json:"chunks_embedded"`
	Failed           int `json:"failed"`
}
