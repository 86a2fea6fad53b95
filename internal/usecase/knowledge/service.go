// Package knowledge ingests documents into the retrieval base: chunking,
// embedding, and storage behind the vector index.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// Document is one source document submitted for ingestion.
type Document struct {
	Title      string
	SourceURL  string
	SourceType string
	Text       string
}

// Stats describes the current state of the knowledge base.
type Stats struct {
	ChunkCount int
}

// Config holds chunking parameters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// Service turns documents into embedded chunks.
type Service struct {
	store    ChunkStore
	embedder domain.Embedder
	cfg      Config
	logger   *zap.Logger

	newID func() string
}

// New creates the knowledge service.
func New(store ChunkStore, embedder domain.Embedder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// AddDocuments chunks, embeds and stores the given documents, returning the
// ids of the stored chunks. Documents with empty text are skipped. All chunks
// of one call are embedded together and stored in one pipelined write.
func (s *Service) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	var (
		texts []string
		metas []retrieval.Metadata
	)
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		meta := retrieval.Metadata{
			Title:      doc.Title,
			SourceURL:  doc.SourceURL,
			SourceType: doc.SourceType,
		}
		for _, part := range SplitText(doc.Text, s.cfg.ChunkSize, s.cfg.ChunkOverlap) {
			texts = append(texts, part)
			metas = append(metas, meta)
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}

	batch, err := s.embedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}

	ids := make([]string, 0, len(texts))
	items := make([]retrieval.Chunk, 0, len(texts))
	for i, text := range texts {
		id := s.newID()
		chunk, err := retrieval.NewChunk(id, text, metas[i], batch.Embeddings[i])
		if err != nil {
			return nil, fmt.Errorf("build chunk: %w", err)
		}
		ids = append(ids, id)
		items = append(items, chunk)
	}

	if err := s.store.Add(ctx, items); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	s.logger.Info("Documents ingested",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(items)),
		zap.Int("embedding_tokens", batch.TotalTokens))
	return ids, nil
}

// Stats reports the number of stored chunks.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}
	return Stats{ChunkCount: n}, nil
}

// embedTexts uses the provider's native batch call when it has one.
func (s *Service) embedTexts(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embedder, texts)
}
