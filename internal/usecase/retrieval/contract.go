package retrieval

import (
	"context"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	domret "github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// Index runs nearest-neighbor queries over the stored chunks.
type Index interface {
	Query(ctx context.Context, vector []float32, n int) ([]domret.Candidate, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
