package chunks

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/helpdesk-cloud/ragdesk/internal/db"
	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

var (
	chunkKeyPrefix = domain.KeyPrefix + "chunk:"
	indexName      = domain.KeyPrefix + "chunks:idx"
)

// store is the consumer interface for the knowledge base (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo stores knowledge chunks as Redis hashes behind an FT vector index.
type Repo struct {
	store store
}

// New creates a chunk repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the KNN index for the given embedding dimension if absent.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(indexName).
		Prefix(chunkKeyPrefix).
		Text("text").
		Tag("source_type").
		VectorHNSW("vector", dim, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Add stores chunks in a single pipelined round-trip.
func (r *Repo) Add(ctx context.Context, items []retrieval.Chunk) error {
	if len(items) == 0 {
		return nil
	}

	hashItems := make([]db.HashSetItem, len(items))
	for i, c := range items {
		meta := c.Metadata()
		hashItems[i] = db.HashSetItem{
			Key: chunkKey(c.ID()),
			Fields: map[string]string{
				"text":        c.Text(),
				"title":       meta.Title,
				"source_url":  meta.SourceURL,
				"source_type": meta.SourceType,
				"vector":      vectorToBytes(c.Vector()),
			},
		}
	}

	if err := r.store.HSetMulti(ctx, hashItems); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

// Query runs a KNN search and returns the n nearest chunks with raw distances.
func (r *Repo) Query(ctx context.Context, vector []float32, n int) ([]retrieval.Candidate, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            n,
		// __vector_score must be listed explicitly: a RETURN clause limits
		// the reply to the named attributes and the distance lives there.
		ReturnFields: []string{"text", "title", "source_url", "source_type", "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	candidates := make([]retrieval.Candidate, 0, len(result.Entries))
	for _, entry := range result.Entries {
		chunk, err := retrieval.NewChunk(
			chunkID(entry.Key),
			entry.Fields["text"],
			retrieval.Metadata{
				Title:      entry.Fields["title"],
				SourceURL:  entry.Fields["source_url"],
				SourceType: entry.Fields["source_type"],
			},
			nil,
		)
		if err != nil {
			continue
		}
		candidates = append(candidates, retrieval.NewCandidate(chunk, entry.Distance))
	}

	return candidates, nil
}

// Count returns the number of stored chunks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func chunkKey(id string) string {
	return chunkKeyPrefix + id
}

func chunkID(key string) string {
	return strings.TrimPrefix(key, chunkKeyPrefix)
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
