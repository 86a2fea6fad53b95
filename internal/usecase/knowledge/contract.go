package knowledge

import (
	"context"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// ChunkStore persists embedded knowledge chunks.
type ChunkStore interface {
	Add(ctx context.Context, items []retrieval.Chunk) error
	Count(ctx context.Context) (int, error)
}
