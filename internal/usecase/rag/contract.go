package rag

import (
	"context"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domgen "github.com/helpdesk-cloud/ragdesk/internal/domain/generation"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// Retriever produces hybrid-scored context candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Result, error)
}

// Assembler builds the ordered message sequence for a generation request.
type Assembler interface {
	Build(query string, contextResults []retrieval.Result, history []chat.Turn) []chat.Message
}

// Generator runs the backend fallback chain for an assembled request.
type Generator interface {
	Generate(ctx context.Context, req domgen.Request, preferred string) domgen.Outcome
}
