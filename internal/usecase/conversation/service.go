package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
)

// storageFactor keeps twice the window in storage so the window survives
// a few malformed or filtered-out entries.
const storageFactor = 2

// Service maintains the bounded conversation context per session.
type Service struct {
	store Store
	limit int
}

// New creates a conversation service. limit is the number of turns handed
// to prompt assembly.
func New(store Store, limit int) *Service {
	return &Service{store: store, limit: limit}
}

// Window returns the last limit dialogue turns in chronological order.
// Non-dialogue roles are dropped before the cut, so a stray system entry
// never displaces real history.
func (s *Service) Window(turns []chat.Turn) []chat.Turn {
	dialogue := make([]chat.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role().IsDialogue() {
			dialogue = append(dialogue, t)
		}
	}
	if s.limit > 0 && len(dialogue) > s.limit {
		dialogue = dialogue[len(dialogue)-s.limit:]
	}
	if len(dialogue) == 0 {
		return nil
	}
	return dialogue
}

// History loads the stored turns for a session and applies the window.
func (s *Service) History(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	turns, err := s.store.History(ctx, sessionID, s.limit*storageFactor)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return s.Window(turns), nil
}

// RecordExchange appends a completed user/assistant exchange. Storage keeps
// at most 2*limit turns; the oldest are evicted.
func (s *Service) RecordExchange(ctx context.Context, sessionID, userText, assistantText string, now time.Time) error {
	userTurn, err := chat.NewTurn(chat.RoleUser, userText, now)
	if err != nil {
		return fmt.Errorf("user turn: %w", err)
	}
	assistantTurn, err := chat.NewTurn(chat.RoleAssistant, assistantText, now)
	if err != nil {
		return fmt.Errorf("assistant turn: %w", err)
	}

	turns := []chat.Turn{userTurn, assistantTurn}
	if err := s.store.Append(ctx, sessionID, turns, s.limit*storageFactor); err != nil {
		return fmt.Errorf("append exchange: %w", err)
	}
	return nil
}
