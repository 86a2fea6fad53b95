package conversation

import (
	"context"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
)

// Store persists dialogue turns per session.
type Store interface {
	Append(ctx context.Context, sessionID string, turns []chat.Turn, maxTurns int) error
	History(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error)
}
