// Package chat drives the session lifecycle around the rag pipeline:
// resolve or create the session, load its context, answer, record the
// exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domrag "github.com/helpdesk-cloud/ragdesk/internal/domain/rag"
)

// Service ties sessions, conversation history and the rag pipeline together.
type Service struct {
	sessions SessionStore
	conv     Conversation
	turns    TurnStore
	pipeline Pipeline
	logger   *zap.Logger

	newID func() string
	now   func() time.Time
}

// New creates the chat service.
func New(sessions SessionStore, conv Conversation, turns TurnStore, pipeline Pipeline, logger *zap.Logger) *Service {
	return &Service{
		sessions: sessions,
		conv:     conv,
		turns:    turns,
		pipeline: pipeline,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// SendMessage answers one user message within a session. An empty sessionID
// starts a new session; an unknown one is (re)created under the same id. The
// resolved session id is returned alongside the answer. History problems
// degrade the answer rather than fail it: the session is the durable part,
// the context is best effort.
func (s *Service) SendMessage(ctx context.Context, sessionID, text, preferred string) (string, domrag.Result, error) {
	if strings.TrimSpace(text) == "" {
		return "", domrag.Result{}, domain.ErrEmptyQuery
	}

	now := s.now()
	sessionID, err := s.ensureSession(ctx, sessionID, now)
	if err != nil {
		return "", domrag.Result{}, err
	}

	history, err := s.conv.History(ctx, sessionID)
	if err != nil {
		s.logger.Warn("Failed to load conversation history, answering without it",
			zap.String("session_id", sessionID), zap.Error(err))
		history = nil
	}

	res := s.pipeline.Process(ctx, text, history, preferred)

	// The exchange is recorded even for apology answers so the dialogue the
	// user actually saw is what the next window is built from.
	if err := s.conv.RecordExchange(ctx, sessionID, text, res.Content, now); err != nil {
		s.logger.Warn("Failed to record exchange",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := s.sessions.TouchSession(ctx, sessionID, now); err != nil {
		s.logger.Warn("Failed to touch session",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	return sessionID, res, nil
}

// Sessions lists all known sessions.
func (s *Service) Sessions(ctx context.Context) ([]chat.Session, error) {
	return s.sessions.ListSessions(ctx)
}

// SessionMessages returns the full stored dialogue of a session.
func (s *Service) SessionMessages(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	turns, err := s.turns.History(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("load session messages: %w", err)
	}
	return turns, nil
}

func (s *Service) ensureSession(ctx context.Context, sessionID string, now time.Time) (string, error) {
	if sessionID == "" {
		sessionID = s.newID()
		return sessionID, s.createSession(ctx, sessionID, now)
	}

	_, err := s.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return sessionID, s.createSession(ctx, sessionID, now)
	}
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sessionID, nil
}

func (s *Service) createSession(ctx context.Context, sessionID string, now time.Time) error {
	session, err := chat.NewSession(sessionID, now)
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("create session %s: %w", sessionID, err)
	}
	s.logger.Info("Session created", zap.String("session_id", sessionID))
	return nil
}
