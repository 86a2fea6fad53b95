package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	domret "github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// candidatePoolFactor widens the KNN fetch beyond topK so that keyword
// scoring can promote chunks the vector ranking alone would cut off.
const candidatePoolFactor = 2

// Config holds retrieval tuning knobs.
type Config struct {
	VectorWeight float64 // convex weight of the vector score in [0,1]
	TopK         int
}

// Service turns a user query into hybrid-scored knowledge chunks.
type Service struct {
	embed  Embedder
	index  Index
	weight float64
	topK   int
}

// New creates a retrieval service.
func New(embed Embedder, index Index, cfg Config) *Service {
	return &Service{
		embed:  embed,
		index:  index,
		weight: cfg.VectorWeight,
		topK:   cfg.TopK,
	}
}

// Retrieve embeds the query, pulls a candidate pool from the index and
// returns the topK chunks ranked by the fused score. Threshold filtering
// is left to the caller.
func (s *Service) Retrieve(ctx context.Context, query string) ([]domret.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}

	pool := s.topK * candidatePoolFactor
	candidates, err := s.index.Query(ctx, embResult.Embedding, pool)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	results := fuseHybrid(candidates, query, s.weight)
	if len(results) > s.topK {
		results = results[:s.topK]
	}
	return results, nil
}
