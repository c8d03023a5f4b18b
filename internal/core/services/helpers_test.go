package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/normalisers"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors"
	"github.com/custodia-labs/sercha-kb/internal/runtime"
)

// testEnv wires every service against in-memory ports
type testEnv struct {
	store     *mocks.MockStore
	edges     *mocks.MockEdgeStore
	graph     *mocks.MockExplorationGraph
	episodes  *mocks.MockLineageStore
	runs      *mocks.MockRunStore
	embedding *mocks.MockEmbeddingService
	services  *runtime.Services
	embedder  *BatchEmbedder
	lineage   *LineageTracker
	indexer   *Indexer
	search    driving.SearchService
	promotion *PromotionPipeline
}

type envOptions struct {
	rules      []domain.RoutingRule
	chunk      postprocessors.ChunkConfig
	aliases    map[string]string
	promotions []PromotionRule
	cache      *mocks.MockEmbeddingCache
	lock       *mocks.MockLockBackend

	// manualGraph stops ingestion from updating the exploration graph
	manualGraph bool
}

type envOption func(*envOptions)

func withRules(rules ...domain.RoutingRule) envOption {
	return func(o *envOptions) { o.rules = rules }
}

func withChunking(maxTokens, overlap int) envOption {
	return func(o *envOptions) { o.chunk = postprocessors.ChunkConfig{MaxTokens: maxTokens, Overlap: overlap} }
}

func withPromotionRules(rules ...PromotionRule) envOption {
	return func(o *envOptions) { o.promotions = rules }
}

func withCache(cache *mocks.MockEmbeddingCache) envOption {
	return func(o *envOptions) { o.cache = cache }
}

func withLockBackend(lock *mocks.MockLockBackend) envOption {
	return func(o *envOptions) { o.lock = lock }
}

func withManualGraph() envOption {
	return func(o *envOptions) { o.manualGraph = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	o := envOptions{
		rules: []domain.RoutingRule{
			{PathPattern: "docs/research/**", Corpus: "research_ai", ContentType: "research"},
			{PathPattern: "deploy/**", Corpus: "deployment", ContentType: "runbook", LifecycleStage: domain.LifecycleStable},
		},
		chunk:   postprocessors.DefaultChunkConfig(),
		aliases: domain.DefaultPredicateAliases(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	router, err := domain.NewRouter(o.rules, "core_kb", "document", domain.LifecycleActive)
	require.NoError(t, err)
	mapper, err := domain.NewPredicateMapper(o.aliases)
	require.NoError(t, err)

	env := &testEnv{
		store:     mocks.NewMockStore(),
		graph:     mocks.NewMockExplorationGraph(),
		episodes:  mocks.NewMockLineageStore(),
		runs:      mocks.NewMockRunStore(),
		embedding: mocks.NewMockEmbeddingService(),
	}
	env.edges = mocks.NewMockEdgeStore(env.store.Entities())

	env.services = runtime.NewServices(domain.NewRuntimeConfig("postgres", "local"))
	env.services.SetEmbeddingService(env.embedding)

	env.embedder, err = NewBatchEmbedder(EmbedderConfig{
		BatchSize:      8,
		Concurrency:    2,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(env.embedder.Close)

	env.lineage = NewLineageTracker(LineageTrackerConfig{Episodes: env.episodes, Runs: env.runs})

	lockerCfg := EntityLockerConfig{RetryInterval: time.Millisecond}
	if o.lock != nil {
		lockerCfg.Backend = o.lock
	}

	env.promotion = NewPromotionPipeline(PromotionPipelineConfig{
		Entities: env.store.Entities(),
		Edges:    env.edges,
		Graph:    env.graph,
		Mapper:   mapper,
		Rules:    o.promotions,
		Lineage:  env.lineage,
		PageSize: 2,
	})

	var graph driving.EntityMaterializer
	if !o.manualGraph {
		graph = env.promotion
	}

	env.indexer = NewIndexer(IndexerConfig{
		Writer:             env.store,
		Entities:           env.store.Entities(),
		Chunks:             env.store.Chunks(),
		Normalisers:        normalisers.DefaultRegistry(),
		Chunker:            postprocessors.NewChunker(o.chunk),
		Router:             router,
		Services:           env.services,
		Embedder:           env.embedder,
		Lineage:            env.lineage,
		Graph:              graph,
		Locker:             NewEntityLocker(lockerCfg),
		BatchConcurrency:   2,
		ClassifierAttempts: 2,
		ClassifierBackoff:  time.Millisecond,
	})

	searchCfg := SearchServiceConfig{
		Entities: env.store.Entities(),
		Chunks:   env.store.Chunks(),
		Services: env.services,
	}
	if o.cache != nil {
		searchCfg.Cache = o.cache
	}
	env.search = NewSearchService(searchCfg)
	return env
}

// episodesFor returns the recorded episodes of one operation against target
func (e *testEnv) episodesFor(op domain.Operation, target string) []*domain.Episode {
	var out []*domain.Episode
	for _, ep := range e.episodes.All() {
		if ep.Operation == op && ep.TargetID == target {
			out = append(out, ep)
		}
	}
	return out
}
