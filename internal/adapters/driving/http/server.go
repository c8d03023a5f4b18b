package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/metrics"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	indexer   driving.IndexerService
	search    driving.SearchService
	promotion driving.PromotionService
	lineage   driving.LineageService
	runtime   *domain.RuntimeConfig

	// Infrastructure
	metrics    *metrics.Metrics
	components map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// Services groups the driving ports exposed over HTTP
type Services struct {
	Indexer   driving.IndexerService
	Search    driving.SearchService
	Promotion driving.PromotionService
	Lineage   driving.LineageService

	// Runtime is optional; /ready reports its capabilities
	Runtime *domain.RuntimeConfig
}

// NewServer creates a new HTTP server. components are pinged by /ready;
// nil entries are skipped.
func NewServer(cfg Config, svc Services, m *metrics.Metrics, components map[string]Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:     http.NewServeMux(),
		version:    cfg.Version,
		logger:     logger,
		indexer:    svc.Indexer,
		search:     svc.Search,
		promotion:  svc.Promotion,
		lineage:    svc.Lineage,
		runtime:    svc.Runtime,
		metrics:    m,
		components: components,
	}

	s.setupRoutes()

	mws := []middleware{recoverPanics(logger), withRequestID}
	if len(cfg.AllowedOrigins) > 0 {
		mws = append(mws, cors(cfg.AllowedOrigins))
	}
	mws = append(mws, accessLog(logger, m))
	handler := chain(s.router, mws...)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health and tooling
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", s.metrics.Handler())
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwagger)

	// Ingestion
	s.router.HandleFunc("POST /api/v1/documents", s.handleIngest)
	s.router.HandleFunc("POST /api/v1/documents/batch", s.handleIngestBatch)
	s.router.HandleFunc("GET /api/v1/entities/{id}", s.handleGetEntity)
	s.router.HandleFunc("DELETE /api/v1/entities/{id}", s.handleDeleteEntity)
	s.router.HandleFunc("GET /api/v1/entities/{id}/edges", s.handleEntityEdges)
	s.router.HandleFunc("POST /api/v1/embeddings/pending", s.handleEmbedPending)

	// Search
	s.router.HandleFunc("POST /api/v1/search/entities", s.handleSearchEntities)
	s.router.HandleFunc("POST /api/v1/search/chunks", s.handleSearchChunks)
	s.router.HandleFunc("POST /api/v1/search/hybrid", s.handleSearchHybrid)
	s.router.HandleFunc("GET /api/v1/corpora", s.handleListCorpora)

	// Graph promotion
	s.router.HandleFunc("POST /api/v1/graph/materialize", s.handleMaterialize)
	s.router.HandleFunc("GET /api/v1/graph/claims", s.handleListClaims)
	s.router.HandleFunc("POST /api/v1/graph/claims/promote", s.handlePromote)
	s.router.HandleFunc("POST /api/v1/graph/claims/reject", s.handleReject)
	s.router.HandleFunc("POST /api/v1/graph/rules/apply", s.handleApplyRules)
	s.router.HandleFunc("GET /api/v1/graph/nodes/{id}/neighbors", s.handleNeighbors)

	// Lineage
	s.router.HandleFunc("GET /api/v1/lineage/{target}", s.handleLineage)
	s.router.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	s.router.HandleFunc("GET /api/v1/runs/{id}/episodes", s.handleRunEpisodes)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
