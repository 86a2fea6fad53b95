package chat

import (
	"context"
	"time"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domrag "github.com/helpdesk-cloud/ragdesk/internal/domain/rag"
)

// SessionStore persists session metadata.
type SessionStore interface {
	CreateSession(ctx context.Context, s chat.Session) error
	GetSession(ctx context.Context, id string) (chat.Session, error)
	TouchSession(ctx context.Context, id string, now time.Time) error
	ListSessions(ctx context.Context) ([]chat.Session, error)
}

// Conversation maintains the windowed dialogue context per session.
type Conversation interface {
	History(ctx context.Context, sessionID string) ([]chat.Turn, error)
	RecordExchange(ctx context.Context, sessionID, userText, assistantText string, now time.Time) error
}

// TurnStore reads raw stored turns. limit <= 0 loads the full history.
type TurnStore interface {
	History(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error)
}

// Pipeline answers one user query with retrieved context and history.
type Pipeline interface {
	Process(ctx context.Context, query string, history []chat.Turn, preferred string) domrag.Result
}
