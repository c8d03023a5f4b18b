package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/neo4j"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-kb/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-kb/internal/config"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/core/services"
	"github.com/custodia-labs/sercha-kb/internal/metrics"
	"github.com/custodia-labs/sercha-kb/internal/normalisers"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors"
	"github.com/custodia-labs/sercha-kb/internal/runtime"
)

// app holds the wired services and the resources they depend on
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db       *postgres.DB
	redis    *redis.Client
	neo4j    *neo4j.GraphStore
	embedder *services.BatchEmbedder
	runtime  *runtime.Services
	metrics  *metrics.Metrics

	indexer   *services.Indexer
	search    driving.SearchService
	promotion *services.PromotionPipeline
	lineage   *services.LineageTracker

	// components are pinged by the readiness probe
	components map[string]http.Pinger
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics.New(),
		components: make(map[string]http.Pinger),
	}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// ===== PostgreSQL =====
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectWait:     cfg.Database.ConnectWait,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	a.components["postgres"] = db
	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	// ===== Redis (optional) =====
	var (
		lock  driven.LockBackend
		cache driven.EmbeddingCache
	)
	lockBackend := "postgres"
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("%w: parse redis url: %w", domain.ErrValidation, err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%w: connect to redis: %w", domain.ErrServiceUnavailable, err)
		}
		redisLock := redisadapter.NewLock(a.redis)
		lock = redisLock
		cache = redisadapter.NewEmbeddingCache(a.redis, cfg.Redis.QueryCacheTTL)
		a.components["redis"] = redisLock
		lockBackend = "redis"
	} else {
		lock = postgres.NewAdvisoryLock(db)
	}

	// ===== Exploration graph =====
	var graph driven.ExplorationGraph
	switch cfg.Graph.Backend {
	case "neo4j":
		store, err := neo4j.Connect(ctx, neo4j.Config{
			URL:      cfg.Graph.Neo4j.URL,
			Username: cfg.Graph.Neo4j.Username,
			Password: cfg.Graph.Neo4j.Password,
			Database: cfg.Graph.Neo4j.Database,
		})
		if err != nil {
			return fmt.Errorf("connect to neo4j: %w", err)
		}
		a.neo4j = store
		a.components["neo4j"] = store
		graph = store
	default:
		graph = postgres.NewGraphStore(db)
	}

	// ===== Collaborators =====
	a.runtime = runtime.NewServices(
		domain.NewRuntimeConfig(cfg.Graph.Backend, lockBackend),
		runtime.WithDimensions(cfg.Embedding.Dimensions),
	)
	factory := ai.NewFactory(logger)
	embedding, err := factory.CreateEmbeddingService(ai.EmbeddingSettings{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return err
	}
	if err := a.runtime.ConnectEmbedding(ctx, embedding); err != nil {
		logger.Warn("embedding service unavailable, new vectors stay pending", "error", err)
	}

	classifier, err := factory.CreateClassifier(ai.ClassifierSettings{
		Enabled:  cfg.Classifier.Enabled,
		Provider: cfg.Classifier.Provider,
		Model:    cfg.Classifier.Model,
		APIKey:   cfg.Classifier.APIKey,
		BaseURL:  cfg.Classifier.BaseURL,
	})
	if err != nil {
		return err
	}
	if err := a.runtime.ConnectClassifier(ctx, classifier); err != nil {
		logger.Warn("classifier unavailable, continuing without classification", "error", err)
	}

	a.embedder, err = services.NewBatchEmbedder(cfg.EmbedderConfig(logger))
	if err != nil {
		return err
	}

	router, err := cfg.Router()
	if err != nil {
		return err
	}
	mapper, err := cfg.PredicateMapper()
	if err != nil {
		return err
	}

	// ===== Stores and services =====
	entities := postgres.NewEntityStore(db)
	chunks := postgres.NewChunkStore(db)

	a.lineage = services.NewLineageTracker(services.LineageTrackerConfig{
		Episodes: postgres.NewEpisodeStore(db),
		Runs:     postgres.NewRunStore(db),
		Metrics:  a.metrics,
		Logger:   logger,
	})

	a.promotion = services.NewPromotionPipeline(services.PromotionPipelineConfig{
		Entities: entities,
		Edges:    postgres.NewEdgeStore(db),
		Graph:    graph,
		Mapper:   mapper,
		Rules:    a.cfg.Promotion.Rules,
		Lineage:  a.lineage,
		Metrics:  a.metrics,
		Logger:   logger,
	})

	a.indexer = services.NewIndexer(services.IndexerConfig{
		Writer:      postgres.NewDocumentWriter(db),
		Entities:    entities,
		Chunks:      chunks,
		Normalisers: normalisers.DefaultRegistry(),
		Chunker:     postprocessors.NewChunker(cfg.ChunkConfig()),
		Router:      router,
		Services:    a.runtime,
		Embedder:    a.embedder,
		Lineage:     a.lineage,
		Graph:       a.promotion,
		Locker: services.NewEntityLocker(services.EntityLockerConfig{
			Backend: lock,
			TTL:     cfg.Ingestion.LockTTL,
			Logger:  logger,
		}),
		Metrics:            a.metrics,
		Logger:             logger,
		ClassifierFields:   cfg.Classifier.Fields,
		BatchConcurrency:   cfg.Ingestion.BatchConcurrency,
		AgentName:          cfg.Ingestion.AgentName,
		AgentVersion:       version,
		ClassifierAttempts: cfg.Classifier.MaxAttempts,
		ClassifierBackoff:  cfg.Classifier.Backoff,
	})

	searchCfg := services.SearchServiceConfig{
		Entities: entities,
		Chunks:   chunks,
		Services: a.runtime,
		Metrics:  a.metrics,
		Logger:   logger,
	}
	if cache != nil {
		searchCfg.Cache = cache
	}
	a.search = services.NewSearchService(searchCfg)

	rc := a.runtime.Config()
	logger.Info("knowledge base wired",
		"graph_backend", rc.GraphBackend,
		"lock_backend", rc.LockBackend,
		"embedding", rc.EmbeddingAvailable(),
		"classifier", rc.ClassifierAvailable())
	return nil
}

// Close releases everything opened by wire, in reverse order
func (a *app) Close() {
	if a.embedder != nil {
		a.embedder.Close()
	}
	if a.runtime != nil {
		_ = a.runtime.Close()
	}
	if a.neo4j != nil {
		if err := a.neo4j.Close(context.Background()); err != nil {
			a.logger.Warn("close neo4j", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
