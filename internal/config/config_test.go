package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/services"
)

const sampleYAML = `
server:
  port: 9090
log:
  format: json
  level: debug
graph:
  backend: neo4j
  neo4j:
    url: neo4j://graph:7687
embedding:
  model: text-embedding-3-large
  dimensions: 3072
  initial_backoff: 50ms
chunking:
  max_tokens: 256
  overlap: 32
routing:
  default_corpus: core_kb
  rules:
    - path_pattern: "docs/research/**"
      corpus: research_ai
      content_type: research
    - path_pattern: "deploy/**"
      corpus: deployment
      lifecycle_stage: stable
promotion:
  aliases:
    builds_on: derived_from
  rules:
    - predicate: extends
      min_strength: 0.8
ingestion:
  lock_ttl: 30s
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, "neo4j", cfg.Graph.Backend)
	assert.Equal(t, "neo4j", cfg.Graph.Neo4j.Username)
	assert.Equal(t, 3072, cfg.Embedding.Dimensions)
	assert.Equal(t, 50*time.Millisecond, cfg.Embedding.InitialBackoff)
	assert.Equal(t, 16, cfg.Embedding.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Ingestion.LockTTL)
	require.Len(t, cfg.Routing.Rules, 2)
	require.Len(t, cfg.Promotion.Rules, 1)
	assert.Equal(t, 0.8, cfg.Promotion.Rules[0].MinStrength)

	chunk := cfg.ChunkConfig()
	assert.Equal(t, 256, chunk.MaxTokens)
	assert.Equal(t, 32, chunk.Overlap)

	router, err := cfg.Router()
	require.NoError(t, err)
	route := router.Route("deploy/k8s/rollout.md")
	assert.Equal(t, "deployment", route.Corpus)
	assert.Equal(t, domain.LifecycleStable, route.LifecycleStage)
	assert.Equal(t, "document", route.ContentType, "content type falls back to the default")
}

func TestParse_PredicateAliasesExtendDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	mapper, err := cfg.PredicateMapper()
	require.NoError(t, err)

	p, err := mapper.Map("builds on")
	require.NoError(t, err)
	assert.Equal(t, domain.PredicateDerivedFrom, p)

	p, err = mapper.Map("extends")
	require.NoError(t, err)
	assert.Equal(t, domain.PredicateDerivedFrom, p)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("chunking:\n  max_tokenz: 10\n"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"overlap equals max tokens", func(c *Config) { c.Chunking.Overlap = c.Chunking.MaxTokens }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero max tokens", func(c *Config) { c.Chunking.MaxTokens = 0 }},
		{"bad glob", func(c *Config) {
			c.Routing.Rules = []domain.RoutingRule{{PathPattern: "docs/[", Corpus: "core_kb"}}
		}},
		{"unknown corpus", func(c *Config) {
			c.Routing.Rules = []domain.RoutingRule{{PathPattern: "docs/**", Corpus: "misc"}}
		}},
		{"unknown lifecycle", func(c *Config) {
			c.Routing.Rules = []domain.RoutingRule{{PathPattern: "docs/**", Corpus: "core_kb", LifecycleStage: "retired"}}
		}},
		{"alias to unknown predicate", func(c *Config) { c.Promotion.Aliases = map[string]string{"uses": "consumes"} }},
		{"rule strength", func(c *Config) {
			c.Promotion.Rules = []services.PromotionRule{{Predicate: "extends", MinStrength: 1.5}}
		}},
		{"rule predicate", func(c *Config) { c.Promotion.Rules = []services.PromotionRule{{MinStrength: 0.5}} }},
		{"neo4j without url", func(c *Config) { c.Graph.Backend = "neo4j" }},
		{"unknown graph backend", func(c *Config) { c.Graph.Backend = "dgraph" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"embedding dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"batch concurrency", func(c *Config) { c.Ingestion.BatchConcurrency = 0 }},
		{"source glob", func(c *Config) { c.Source.Include = []string{"src/[ab"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrValidation)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nembedding:\n  model: from-file\n"), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EMBEDDING_MODEL", "from-env")
	t.Setenv("CLASSIFIER_ENABLED", "true")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-test", cfg.Classifier.APIKey)
	assert.Equal(t, "from-env", cfg.Embedding.Model)
	assert.True(t, cfg.Classifier.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ingestion:\n  batch_concurrency: 9\n"), 0o600))
	t.Setenv("SERCHA_KB_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Ingestion.BatchConcurrency)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err, "the default path is optional")
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "entity_id", "hybrid-search")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"entity_id":"hybrid-search"`)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "sercha-kb.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectWait)
	require.Len(t, cfg.Routing.Rules, 2)
}
