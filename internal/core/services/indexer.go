package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/metrics"
	"github.com/custodia-labs/sercha-kb/internal/normalisers"
	"github.com/custodia-labs/sercha-kb/internal/runtime"
)

// Ensure Indexer implements IndexerService
var _ driving.IndexerService = (*Indexer)(nil)

// wordsPerMinute drives the reading time estimate
const wordsPerMinute = 200

// Indexer runs the per-document ingestion pipeline:
//  1. Derive the entity ID from the source path and take the entity lock
//  2. Normalise content and lift frontmatter into metadata
//  3. Route the path to corpus, content type and lifecycle stage
//  4. Classify (optional)
//  5. Chunk the body
//  6. Embed the metadata text and each passage, reusing unchanged vectors
//  7. Upsert the entity and replace its chunks in one transaction
//  8. Mirror detected edges into the exploration graph
//
// Every document, succeeded or failed, leaves an ingest episode.
type Indexer struct {
	writer      driven.DocumentWriter
	entities    driven.EntityStore
	chunks      driven.ChunkStore
	normalisers driven.NormaliserRegistry
	chunker     driven.Chunker
	router      *domain.Router
	services    *runtime.Services
	embedder    *BatchEmbedder
	lineage     driving.LineageService
	graph       driving.EntityMaterializer
	locker      *EntityLocker
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time

	classifierFields []string
	batchConcurrency int
	agentName        string
	agentVersion     string
	retryAttempts    int
	retryInitial     time.Duration
}

// IndexerConfig holds dependencies for Indexer.
type IndexerConfig struct {
	Writer      driven.DocumentWriter
	Entities    driven.EntityStore
	Chunks      driven.ChunkStore
	Normalisers driven.NormaliserRegistry
	Chunker     driven.Chunker
	Router      *domain.Router
	Services    *runtime.Services
	Embedder    *BatchEmbedder
	Lineage     driving.LineageService
	Locker      *EntityLocker
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Now         func() time.Time

	// Graph receives each committed entity. Nil leaves the exploration
	// graph to explicit materialization.
	Graph driving.EntityMaterializer

	// ClassifierFields are requested from the classifier
	ClassifierFields []string

	// BatchConcurrency caps documents ingested at once by a batch
	BatchConcurrency int

	// AgentName and AgentVersion are stamped on episodes
	AgentName    string
	AgentVersion string

	// ClassifierAttempts bounds classifier calls per document
	ClassifierAttempts int
	ClassifierBackoff  time.Duration
}

// NewIndexer creates a new Indexer.
func NewIndexer(cfg IndexerConfig) *Indexer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	locker := cfg.Locker
	if locker == nil {
		locker = NewEntityLocker(EntityLockerConfig{Logger: logger})
	}
	fields := cfg.ClassifierFields
	if len(fields) == 0 {
		fields = DefaultClassifierFields
	}
	agent := cfg.AgentName
	if agent == "" {
		agent = "sercha-kb"
	}
	ix := &Indexer{
		writer:           cfg.Writer,
		entities:         cfg.Entities,
		chunks:           cfg.Chunks,
		normalisers:      cfg.Normalisers,
		chunker:          cfg.Chunker,
		router:           cfg.Router,
		services:         cfg.Services,
		embedder:         cfg.Embedder,
		lineage:          cfg.Lineage,
		graph:            cfg.Graph,
		locker:           locker,
		metrics:          cfg.Metrics,
		logger:           logger,
		now:              now,
		classifierFields: fields,
		batchConcurrency: cfg.BatchConcurrency,
		agentName:        agent,
		agentVersion:     cfg.AgentVersion,
		retryAttempts:    cfg.ClassifierAttempts,
		retryInitial:     cfg.ClassifierBackoff,
	}
	if ix.batchConcurrency <= 0 {
		ix.batchConcurrency = 4
	}
	if ix.retryAttempts <= 0 {
		ix.retryAttempts = 3
	}
	if ix.retryInitial <= 0 {
		ix.retryInitial = 200 * time.Millisecond
	}
	return ix
}

// Ingest upserts one document and replaces its chunks atomically.
func (s *Indexer) Ingest(ctx context.Context, doc domain.SourceDocument) (*domain.IngestResult, error) {
	if strings.TrimSpace(doc.Path) == "" {
		return nil, fmt.Errorf("%w: document path is required", domain.ErrValidation)
	}
	entityID := domain.EntityIDFromPath(doc.Path)
	if entityID == "" {
		return nil, fmt.Errorf("%w: cannot derive an entity id from %q", domain.ErrValidation, doc.Path)
	}

	inputHash := domain.ContentHash(doc.Content)
	episode := &domain.Episode{
		Operation:    domain.OpIngest,
		TargetType:   domain.TargetEntity,
		TargetID:     entityID,
		AgentName:    s.agentName,
		AgentVersion: s.agentVersion,
		InputHash:    inputHash,
		Metadata:     map[string]any{"source_path": doc.Path},
	}
	if svc := s.services.EmbeddingService(); svc != nil {
		episode.ModelName = svc.Model()
	}

	var result *domain.IngestResult
	err := s.lineage.Track(ctx, episode, func(ctx context.Context) error {
		r, err := s.ingest(ctx, entityID, doc, inputHash)
		if err != nil {
			return err
		}
		result = r
		episode.Metadata["chunk_count"] = r.Chunks
		episode.Metadata["created"] = r.Created
		episode.Metadata["pending_embeddings"] = r.PendingEmbeddings
		return nil
	})
	if err != nil {
		s.metrics.DocumentIngested(string(domain.DocumentFailed))
		s.logger.Warn("ingest failed", "entity_id", entityID, "path", doc.Path, "error", err)
		return nil, err
	}

	result.EpisodeID = episode.ID
	s.metrics.DocumentIngested(string(domain.DocumentSucceeded))
	s.metrics.ChunksWritten(result.Chunks)
	s.metrics.EmbeddingsReused(result.ReusedEmbeddings)
	s.logger.Info("document ingested",
		"entity_id", entityID,
		"chunks", result.Chunks,
		"created", result.Created,
		"pending_embeddings", result.PendingEmbeddings,
	)
	return result, nil
}

func (s *Indexer) ingest(ctx context.Context, entityID string, doc domain.SourceDocument, inputHash string) (*domain.IngestResult, error) {
	entityType := doc.EntityType
	if entityType == "" {
		entityType = domain.EntityTypeContent
	}
	if !entityType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEntityType, entityType)
	}

	unlock, err := s.locker.Lock(ctx, entityID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, prevChunks, err := s.load(ctx, entityID)
	if err != nil {
		return nil, err
	}

	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = normalisers.MIMETypeForPath(doc.Path)
	}
	norm := s.normalise(doc.Content, mimeType)

	fields := make(map[string]any, len(norm.Fields))
	for k, v := range norm.Fields {
		fields[k] = v
	}
	title := doc.Title
	if t, ok := fields["title"].(string); ok {
		if title == "" {
			title = strings.TrimSpace(t)
		}
		delete(fields, "title")
	}
	if title == "" {
		title = domain.TitleFromContent(norm.Body, doc.Path)
	}

	frontmatter, err := metadataFromMap(fields)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}
	supplied, err := metadataFromMap(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("document metadata: %w", err)
	}
	meta := frontmatter.Merge(supplied)

	route := s.router.Route(doc.Path)
	contentType := route.ContentType

	classification, err := s.classify(ctx, entityID, norm.Body, inputHash)
	if err != nil {
		s.logger.Warn("classification unavailable, continuing without it", "entity_id", entityID, "error", err)
	}
	if classification != nil {
		meta = meta.Merge(classification.Metadata())
		if classification.ContentType != "" {
			contentType = classification.ContentType
		}
	}

	words := len(strings.Fields(norm.Body))
	meta.WordCount = words
	meta.ReadingTimeMinutes = max(1, words/wordsPerMinute)

	incoming := &domain.Entity{
		ID:               entityID,
		Title:            title,
		EntityType:       entityType,
		Corpus:           route.Corpus,
		ContentType:      contentType,
		LifecycleStage:   route.LifecycleStage,
		SourcePath:       doc.Path,
		Metadata:         meta,
		PrimaryPatternID: doc.PrimaryPatternID,
		ContentHash:      domain.ContentHash(norm.Body),
	}

	now := s.now().UTC()

	// Resolve against the stored row up front so validation failures
	// surface before any collaborator call.
	preview, err := incoming.UpsertOnto(existing, now)
	if err != nil {
		return nil, err
	}

	passages := s.chunker.Chunk(norm.Body)
	chunks := make([]*domain.Chunk, len(passages))
	for i, p := range passages {
		chunks[i] = &domain.Chunk{
			ID:          domain.ChunkID(entityID, i),
			EntityID:    entityID,
			Position:    i,
			TotalChunks: len(passages),
			HeadingPath: p.HeadingPath,
			Content:     p.Content,
			TokenCount:  p.TokenCount,
			Corpus:      preview.Corpus,
			ContentType: preview.ContentType,
			CreatedAt:   now,
		}
	}

	docVec, pending, reused := s.embed(ctx, existing, preview, passages, prevChunks, chunks)

	var created bool
	stored, err := s.writer.WriteDocument(ctx, entityID, func(current *domain.Entity) (*domain.Entity, []*domain.Chunk, error) {
		created = current == nil
		merged, err := incoming.UpsertOnto(current, now)
		if err != nil {
			return nil, nil, err
		}
		merged.Embedding = docVec
		merged.ChunkCount = len(chunks)
		return merged, chunks, nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrConsistency) && !errors.Is(err, domain.ErrTransaction) {
			err = fmt.Errorf("%w: write %s: %w", domain.ErrTransaction, entityID, err)
		}
		return nil, err
	}

	result := &domain.IngestResult{
		EntityID:          entityID,
		Chunks:            len(chunks),
		Created:           created,
		PendingEmbeddings: pending,
		ReusedEmbeddings:  reused,
	}
	s.materialize(ctx, stored, result)
	return result, nil
}

// materialize mirrors the committed entity into the exploration graph.
// Failures are reported on result and never undo the write.
func (s *Indexer) materialize(ctx context.Context, e *domain.Entity, result *domain.IngestResult) {
	if s.graph == nil || e == nil {
		return
	}
	report, err := s.graph.MaterializeEntity(ctx, e)
	if err != nil {
		result.GraphError = err.Error()
		s.logger.Warn("exploration graph not updated", "entity_id", e.ID, "error", err)
		return
	}
	result.Relations = report.Relations
}

// load reads the stored entity and its chunks, if any
func (s *Indexer) load(ctx context.Context, entityID string) (*domain.Entity, []*domain.Chunk, error) {
	existing, err := s.entities.Get(ctx, entityID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load entity %s: %w", entityID, err)
	}
	chunks, err := s.chunks.GetByEntity(ctx, entityID)
	if err != nil {
		return nil, nil, fmt.Errorf("load chunks of %s: %w", entityID, err)
	}
	return existing, chunks, nil
}

func (s *Indexer) normalise(content, mimeType string) driven.Normalised {
	if s.normalisers == nil {
		return driven.Normalised{Body: strings.TrimSpace(content)}
	}
	return s.normalisers.Normalise(content, mimeType)
}

// embed fills chunk embeddings and returns the entity vector. Vectors whose
// input text is unchanged since the last ingest are carried over. Texts
// that still fail after retries are left nil and counted as pending.
func (s *Indexer) embed(ctx context.Context, existing, preview *domain.Entity, passages []domain.Passage, prev, chunks []*domain.Chunk) (docVec []float32, pending, reused int) {
	docText := DocumentEmbeddingText(preview)
	if existing != nil && len(existing.Embedding) > 0 && DocumentEmbeddingText(existing) == docText {
		docVec = existing.Embedding
		reused++
	}

	byContent := make(map[string][]*domain.Chunk, len(prev))
	for _, c := range prev {
		if len(c.Embedding) > 0 {
			byContent[c.Content] = append(byContent[c.Content], c)
		}
	}

	var texts []string
	var targets []int // -1 is the entity, otherwise a chunk position
	if docVec == nil {
		texts = append(texts, docText)
		targets = append(targets, -1)
	}
	for i, p := range passages {
		if old := findSameText(p, byContent[p.Content]); old != nil {
			chunks[i].Embedding = old.Embedding
			if i < len(prev) && prev[i].ID == chunks[i].ID && prev[i].Content == chunks[i].Content {
				chunks[i].CreatedAt = prev[i].CreatedAt
			}
			reused++
			continue
		}
		texts = append(texts, PassageEmbeddingText(chunks[i]))
		targets = append(targets, i)
	}
	if len(texts) == 0 {
		return docVec, 0, reused
	}

	svc := s.services.EmbeddingService()
	if svc == nil || s.embedder == nil {
		s.logger.Warn("no embedding service configured, vectors left pending", "entity_id", preview.ID, "pending", len(texts))
		return docVec, len(texts), reused
	}

	vecs, errs := s.embedder.EmbedAll(ctx, svc, texts)
	for k, target := range targets {
		if errs[k] != nil {
			pending++
			continue
		}
		if target < 0 {
			docVec = vecs[k]
		} else {
			chunks[target].Embedding = vecs[k]
		}
	}
	if pending > 0 {
		s.metrics.EmbeddingFailed(pending)
	}
	return docVec, pending, reused
}

func findSameText(p domain.Passage, candidates []*domain.Chunk) *domain.Chunk {
	for _, c := range candidates {
		if p.SameText(c) {
			return c
		}
	}
	return nil
}

// metadataFromMap validates an open map against the known metadata fields
func metadataFromMap(fields map[string]any) (domain.Metadata, error) {
	var m domain.Metadata
	if len(fields) == 0 {
		return m, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return m, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return m, err
		}
		return m, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return m, nil
}

// Delete removes an entity and, by cascade, its chunks
func (s *Indexer) Delete(ctx context.Context, entityID string) error {
	unlock, err := s.locker.Lock(ctx, entityID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.entities.Delete(ctx, entityID); err != nil {
		return fmt.Errorf("delete entity %s: %w", entityID, err)
	}
	s.logger.Info("entity deleted", "entity_id", entityID)
	return nil
}

// Get returns an entity and its chunks in position order
func (s *Indexer) Get(ctx context.Context, entityID string) (*domain.Entity, []*domain.Chunk, error) {
	entity, err := s.entities.Get(ctx, entityID)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.chunks.GetByEntity(ctx, entityID)
	if err != nil {
		return nil, nil, err
	}
	return entity, chunks, nil
}
