// Package retrieval holds the knowledge-base value types: stored chunks,
// search candidates, and hybrid-scored results.
package retrieval

import "errors"

// Metadata describes the source a chunk was cut from.
type Metadata struct {
	Title      string
	SourceURL  string
	SourceType string
}

// Chunk is a bounded slice of a source document, immutable once stored.
type Chunk struct {
	id     string
	text   string
	meta   Metadata
	vector []float32
}

// NewChunk creates a chunk. The vector may be nil before embedding.
func NewChunk(id, text string, meta Metadata, vector []float32) (Chunk, error) {
	if id == "" {
		return Chunk{}, errors.New("chunk id is required")
	}
	return Chunk{id: id, text: text, meta: meta, vector: vector}, nil
}

// ID returns the chunk identifier.
func (c Chunk) ID() string { return c.id }

// Text returns the chunk content.
func (c Chunk) Text() string { return c.text }

// Metadata returns the source metadata.
func (c Chunk) Metadata() Metadata { return c.meta }

// Vector returns the stored embedding.
func (c Chunk) Vector() []float32 { return c.vector }

// WithVector returns a copy of the chunk carrying the given embedding.
func (c Chunk) WithVector(vector []float32) Chunk {
	c.vector = vector
	return c
}

// Candidate is a chunk returned by the nearest-neighbor index together with
// its cosine distance to the query vector.
type Candidate struct {
	chunk    Chunk
	distance float64
}

// NewCandidate creates an index candidate.
func NewCandidate(chunk Chunk, distance float64) Candidate {
	return Candidate{chunk: chunk, distance: distance}
}

// Chunk returns the candidate chunk.
func (c Candidate) Chunk() Chunk { return c.chunk }

// Distance returns the raw index distance.
func (c Candidate) Distance() float64 { return c.distance }

// Similarity derives a [0,1] similarity from the index distance (1 - distance, clamped).
func (c Candidate) Similarity() float64 { return ClampScore(1 - c.distance) }
