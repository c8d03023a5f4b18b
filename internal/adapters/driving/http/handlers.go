package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"validation error: predicate not in closed set"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports per-component health
// @Description Readiness with component status
type ReadyResponse struct {
	Status     string            `json:"status" example:"ready"`
	Components map[string]string `json:"components,omitempty"`

	// Capabilities lists optional collaborators. Missing ones degrade
	// features without failing readiness.
	Capabilities *domain.Capabilities `json:"capabilities,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database, graph, cache and lock backends
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Components: map[string]string{}}
	status := http.StatusOK
	for name, p := range s.components {
		if p == nil {
			continue
		}
		if err := p.Ping(r.Context()); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	if s.runtime != nil {
		caps := s.runtime.Capabilities()
		resp.Capabilities = &caps
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Ingestion endpoints

// handleIngest godoc
// @Summary      Ingest a document
// @Description  Upserts one document and atomically replaces its chunks. An ingest episode is recorded either way.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      domain.SourceDocument  true  "Document"
// @Success      200      {object}  domain.IngestResult
// @Failure      400      {object}  ErrorResponse  "Invalid document"
// @Failure      503      {object}  ErrorResponse  "Storage write rolled back"
// @Router       /documents [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var doc domain.SourceDocument
	if !decodeBody(w, r, &doc) {
		return
	}
	if doc.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	res, err := s.indexer.Ingest(r.Context(), doc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// batchRequest is a set of documents ingested under one run
type batchRequest struct {
	Documents  []domain.SourceDocument `json:"documents"`
	AgentName  string                  `json:"agent_name,omitempty" example:"importer"`
	SourceName string                  `json:"source_name,omitempty" example:"docs-repo"`
}

// handleIngestBatch godoc
// @Summary      Ingest a batch
// @Description  Ingests documents under one run and reports per-document status
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      batchRequest  true  "Documents"
// @Success      200      {object}  domain.BatchResult
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Router       /documents/batch [post]
func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents are required")
		return
	}

	res, err := s.indexer.IngestBatch(r.Context(), req.Documents, driving.BatchOptions{
		RunType:    domain.RunAgent,
		AgentName:  req.AgentName,
		SourceName: req.SourceName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EntityResponse is an entity with its chunks
type EntityResponse struct {
	Entity *domain.Entity  `json:"entity"`
	Chunks []*domain.Chunk `json:"chunks"`
}

// handleGetEntity godoc
// @Summary      Get entity
// @Description  Returns an entity with its chunks in position order
// @Tags         Entities
// @Produce      json
// @Param        id   path      string  true  "Entity ID"
// @Success      200  {object}  EntityResponse
// @Failure      404  {object}  ErrorResponse  "Entity not found"
// @Router       /entities/{id} [get]
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entity, chunks, err := s.indexer.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntityResponse{Entity: entity, Chunks: chunks})
}

// handleDeleteEntity godoc
// @Summary      Delete entity
// @Description  Removes an entity and its chunks
// @Tags         Entities
// @Produce      json
// @Param        id   path      string  true  "Entity ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Entity not found"
// @Router       /entities/{id} [delete]
func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// handleEntityEdges godoc
// @Summary      Committed edges of an entity
// @Tags         Entities
// @Produce      json
// @Param        id   path      string  true  "Entity ID"
// @Success      200  {array}   domain.Edge
// @Router       /entities/{id}/edges [get]
func (s *Server) handleEntityEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := s.promotion.EdgesFor(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(edges))
}

// handleEmbedPending godoc
// @Summary      Repair missing embeddings
// @Description  Computes vectors left null by earlier embedding failures
// @Tags         Ingestion
// @Produce      json
// @Param        limit  query     int  false  "Maximum targets per kind"
// @Success      200    {object}  domain.EmbedReport
// @Failure      503    {object}  ErrorResponse  "No embedding service"
// @Router       /embeddings/pending [post]
func (s *Server) handleEmbedPending(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	report, err := s.indexer.EmbedPending(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Search endpoints

// handleSearchEntities godoc
// @Summary      Search entities
// @Description  Ranks documents by their metadata vectors. Filters apply before the limit.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      domain.SearchQuery  true  "Query text or vector"
// @Success      200      {object}  domain.EntitySearchResult
// @Failure      400      {object}  ErrorResponse  "Missing query or dimension mismatch"
// @Failure      503      {object}  ErrorResponse  "No embedding service for a text query"
// @Router       /search/entities [post]
func (s *Server) handleSearchEntities(w http.ResponseWriter, r *http.Request) {
	var q domain.SearchQuery
	if !decodeBody(w, r, &q) {
		return
	}
	res, err := s.search.SearchEntities(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSearchChunks godoc
// @Summary      Search passages
// @Description  Ranks chunks by their content vectors
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      domain.SearchQuery  true  "Query text or vector"
// @Success      200      {object}  domain.ChunkSearchResult
// @Failure      400      {object}  ErrorResponse  "Missing query or dimension mismatch"
// @Router       /search/chunks [post]
func (s *Server) handleSearchChunks(w http.ResponseWriter, r *http.Request) {
	var q domain.SearchQuery
	if !decodeBody(w, r, &q) {
		return
	}
	res, err := s.search.SearchChunks(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSearchHybrid godoc
// @Summary      Hybrid search
// @Description  Ranks entities, then the best passages within each
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      domain.HybridQuery  true  "Query"
// @Success      200      {object}  domain.HybridSearchResult
// @Failure      400      {object}  ErrorResponse  "Missing query"
// @Router       /search/hybrid [post]
func (s *Server) handleSearchHybrid(w http.ResponseWriter, r *http.Request) {
	var q domain.HybridQuery
	if !decodeBody(w, r, &q) {
		return
	}
	res, err := s.search.SearchHybrid(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListCorpora godoc
// @Summary      List corpora
// @Description  Entity counts per corpus, largest first
// @Tags         Search
// @Produce      json
// @Success      200  {array}  domain.CorpusCount
// @Router       /corpora [get]
func (s *Server) handleListCorpora(w http.ResponseWriter, r *http.Request) {
	counts, err := s.search.ListCorpora(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(counts))
}

// Graph endpoints

// handleMaterialize godoc
// @Summary      Materialize exploration graph
// @Description  Mirrors detected edges from entity metadata into the exploration graph. Decided claims keep their status.
// @Tags         Graph
// @Accept       json
// @Produce      json
// @Param        request  body      driving.MaterializeOptions  false  "Options"
// @Success      200      {object}  driving.MaterializeReport
// @Router       /graph/materialize [post]
func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	var opts driving.MaterializeOptions
	if r.ContentLength != 0 && !decodeBody(w, r, &opts) {
		return
	}
	report, err := s.promotion.Materialize(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleListClaims godoc
// @Summary      List claims
// @Tags         Graph
// @Produce      json
// @Param        status  query     string  false  "Claim status"  Enums(proposed, exploratory, committed, rejected)
// @Success      200     {array}   domain.ProposedRelation
// @Failure      400     {object}  ErrorResponse  "Unknown status"
// @Router       /graph/claims [get]
func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	status := domain.ClaimStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.ClaimProposed, domain.ClaimExploratory, domain.ClaimCommitted, domain.ClaimRejected:
	default:
		writeError(w, http.StatusBadRequest, "unknown claim status")
		return
	}
	claims, err := s.promotion.Claims(r.Context(), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(claims))
}

// handlePromote godoc
// @Summary      Promote a claim
// @Description  Commits an exploratory claim after mapping its predicate onto the closed set
// @Tags         Graph
// @Accept       json
// @Produce      json
// @Param        request  body      driving.PromotionRequest  true  "Claim"
// @Success      200      {object}  driving.PromotionOutcome
// @Failure      404      {object}  ErrorResponse  "Claim not found"
// @Failure      409      {object}  ErrorResponse  "Unmapped predicate, dangling endpoint or already decided"
// @Router       /graph/claims/promote [post]
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	var req driving.PromotionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validKey(w, req.Key) {
		return
	}
	out, err := s.promotion.Promote(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// rejectRequest rejects one claim
type rejectRequest struct {
	Key      domain.ClaimKey `json:"key"`
	Reviewer string          `json:"reviewer,omitempty" example:"alice"`
	Reason   string          `json:"reason,omitempty" example:"not a real dependency"`
}

// handleReject godoc
// @Summary      Reject a claim
// @Tags         Graph
// @Accept       json
// @Produce      json
// @Param        request  body      rejectRequest  true  "Claim"
// @Success      200      {object}  driving.PromotionOutcome
// @Failure      409      {object}  ErrorResponse  "Already decided"
// @Router       /graph/claims/reject [post]
func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validKey(w, req.Key) {
		return
	}
	out, err := s.promotion.Reject(r.Context(), req.Key, req.Reviewer, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleApplyRules godoc
// @Summary      Apply promotion rules
// @Description  Commits every exploratory claim matching a configured rule
// @Tags         Graph
// @Produce      json
// @Success      200  {object}  driving.RuleReport
// @Router       /graph/rules/apply [post]
func (s *Server) handleApplyRules(w http.ResponseWriter, r *http.Request) {
	report, err := s.promotion.ApplyRules(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleNeighbors godoc
// @Summary      Graph neighbors
// @Description  Direct neighbors of a node, outgoing first
// @Tags         Graph
// @Produce      json
// @Param        id   path      string  true  "Node ID"
// @Success      200  {array}   domain.Neighbor
// @Router       /graph/nodes/{id}/neighbors [get]
func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	neighbors, err := s.promotion.Neighbors(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(neighbors))
}

// Lineage endpoints

// handleLineage godoc
// @Summary      Lineage of a target
// @Description  Episodes recorded for an entity, chunk or claim, oldest first
// @Tags         Lineage
// @Produce      json
// @Param        target  path      string  true  "Target ID"
// @Success      200     {array}   domain.Episode
// @Router       /lineage/{target} [get]
func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.lineage.Lineage(r.Context(), r.PathValue("target"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(episodes))
}

// handleGetRun godoc
// @Summary      Get run
// @Tags         Lineage
// @Produce      json
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  domain.Run
// @Failure      404  {object}  ErrorResponse  "Run not found"
// @Router       /runs/{id} [get]
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.lineage.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunEpisodes godoc
// @Summary      Episodes of a run
// @Tags         Lineage
// @Produce      json
// @Param        id   path      string  true  "Run ID"
// @Success      200  {array}   domain.Episode
// @Router       /runs/{id}/episodes [get]
func (s *Server) handleRunEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.lineage.RunEpisodes(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(episodes))
}

// Helpers

// statusFor maps error categories onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConsistency), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCollaborator):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTransaction), errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func validKey(w http.ResponseWriter, key domain.ClaimKey) bool {
	if key.Source == "" || key.Target == "" || key.Predicate == "" {
		writeError(w, http.StatusBadRequest, "key requires source, target and predicate")
		return false
	}
	return true
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
