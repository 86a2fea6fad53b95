package retrieval

import "math"

// Result is one hybrid-scored retrieval hit. Scores are clamped to [0,1]
// at construction so malformed index output never leaks downstream.
type Result struct {
	chunkID       string
	text          string
	meta          Metadata
	vectorScore   float64
	keywordScore  float64
	combinedScore float64
}

// NewResult creates a scored retrieval result with all scores clamped.
func NewResult(chunkID, text string, meta Metadata, vectorScore, keywordScore, combinedScore float64) Result {
	return Result{
		chunkID:       chunkID,
		text:          text,
		meta:          meta,
		vectorScore:   ClampScore(vectorScore),
		keywordScore:  ClampScore(keywordScore),
		combinedScore: ClampScore(combinedScore),
	}
}

// ChunkID returns the source chunk identifier.
func (r Result) ChunkID() string { return r.chunkID }

// Text returns the chunk content.
func (r Result) Text() string { return r.text }

// Metadata returns the source metadata.
func (r Result) Metadata() Metadata { return r.meta }

// VectorScore returns the cosine similarity component.
func (r Result) VectorScore() float64 { return r.vectorScore }

// KeywordScore returns the lexical overlap component.
func (r Result) KeywordScore() float64 { return r.keywordScore }

// CombinedScore returns the convex combination of vector and keyword scores.
func (r Result) CombinedScore() float64 { return r.combinedScore }

// ClampScore forces a similarity value into [0,1]. NaN and negative values
// (e.g. negative cosine similarity from an external index) collapse to 0.
func ClampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// FilterByThreshold keeps results whose combined score meets the threshold.
// Filtering is idempotent; an empty outcome is valid.
func FilterByThreshold(results []Result, threshold float64) []Result {
	if len(results) == 0 {
		return nil
	}
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if r.combinedScore >= threshold {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
