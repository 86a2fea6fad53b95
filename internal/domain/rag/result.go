// Package rag holds the sole artifact the orchestrator returns to its callers.
package rag

import (
	"time"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// ContextSource points at one knowledge-base chunk used as answer context.
type ContextSource struct {
	ChunkID    string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Result is the normalized answer for one user message. It is always
// returned — never a raw error — with Success indicating whether a
// generated answer is present.
type Result struct {
	Content          string
	BackendUsed      string
	TokensUsed       int
	Elapsed          time.Duration
	ContextSources   []ContextSource
	SimilarityScores []float64
	Success          bool
	Err              error
}

const unknownSourceTitle = "Неизвестный источник"

// SourcesFromResults maps retrieval results into context sources and their
// similarity scores. Both slices are built from the same pass, so they always
// have equal length and matching order.
func SourcesFromResults(results []retrieval.Result) ([]ContextSource, []float64) {
	if len(results) == 0 {
		return nil, nil
	}
	sources := make([]ContextSource, 0, len(results))
	scores := make([]float64, 0, len(results))
	for _, r := range results {
		title := r.Metadata().Title
		if title == "" {
			title = unknownSourceTitle
		}
		sources = append(sources, ContextSource{
			ChunkID:    r.ChunkID(),
			Title:      title,
			URL:        r.Metadata().SourceURL,
			Similarity: r.CombinedScore(),
		})
		scores = append(scores, r.CombinedScore())
	}
	return sources, scores
}
