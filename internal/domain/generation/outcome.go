package generation

import "time"

// FallbackBackendName marks an answer produced by no real backend — the
// sentinel apology returned when the whole chain is exhausted.
const FallbackBackendName = "fallback"

// Outcome is the router's normalized verdict over the whole fallback chain:
// either the first successful backend response, or the exhaustion sentinel.
type Outcome struct {
	Content     string
	BackendUsed string
	TokensUsed  int
	Elapsed     time.Duration
	Success     bool
	Err         error     // set when Success is false
	Attempts    []Attempt // every backend tried, in order
}
