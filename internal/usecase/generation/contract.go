package generation

import (
	"context"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domgen "github.com/helpdesk-cloud/ragdesk/internal/domain/generation"
)

// Backend is one text generation provider behind the router.
type Backend interface {
	// Name identifies the backend in configuration and logs.
	Name() string
	// Available reports whether the backend is usable (credentials present).
	// Must be cheap: it is consulted on every request to build the chain.
	Available() bool
	// Generate produces a completion for the ordered message sequence.
	Generate(ctx context.Context, messages []chat.Message, temperature float32, maxTokens int) (domgen.Response, error)
}
