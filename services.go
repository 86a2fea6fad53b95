package ragdesk

import (
	"context"
	"fmt"
	"time"

	chatuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/chat"
	knowledgeuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/knowledge"
)

// Document is a knowledge base entry to ingest.
type Document struct {
	Title      string
	URL        string
	SourceType string
	Text       string
}

// Source describes one knowledge chunk that backed an answer.
type Source struct {
	ChunkID    string
	Title      string
	URL        string
	Similarity float64
}

// Answer is the outcome of one user message. Success is false when the
// pipeline fell back to a service-unavailable apology.
type Answer struct {
	Content          string
	SessionID        string
	ModelUsed        string
	TokensUsed       int
	ResponseTime     time.Duration
	Sources          []Source
	SimilarityScores []float64
	Success          bool
}

// Session is conversation metadata.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one stored dialogue entry.
type ChatMessage struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// ChatService runs the question-answering pipeline over stored sessions.
type ChatService struct {
	svc *chatuc.Service
}

// Send processes one user message. An empty sessionID starts a new
// session; preferredModel overrides the default backend for this call
// when that backend is registered.
func (s *ChatService) Send(ctx context.Context, sessionID, message, preferredModel string) (Answer, error) {
	id, result, err := s.svc.SendMessage(ctx, sessionID, message, preferredModel)
	if err != nil {
		return Answer{}, fmt.Errorf("send message: %w", err)
	}
	return answerFromResult(id, result), nil
}

// Sessions lists all known sessions.
func (s *ChatService) Sessions(ctx context.Context) ([]Session, error) {
	sessions, err := s.svc.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, Session{
			ID:        sess.ID(),
			CreatedAt: sess.CreatedAt(),
			UpdatedAt: sess.UpdatedAt(),
		})
	}
	return out, nil
}

// Messages returns the full stored history of a session.
func (s *ChatService) Messages(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	turns, err := s.svc.SessionMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session messages: %w", err)
	}
	out := make([]ChatMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, ChatMessage{
			Role:      string(t.Role()),
			Content:   t.Content(),
			CreatedAt: t.CreatedAt(),
		})
	}
	return out, nil
}

// KnowledgeService manages the chunked document index.
type KnowledgeService struct {
	svc *knowledgeuc.Service
}

// AddDocuments chunks, embeds and indexes documents. Returns the stored
// chunk ids.
func (s *KnowledgeService) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	converted := make([]knowledgeuc.Document, 0, len(docs))
	for _, d := range docs {
		converted = append(converted, knowledgeuc.Document{
			Title:      d.Title,
			SourceURL:  d.URL,
			SourceType: d.SourceType,
			Text:       d.Text,
		})
	}
	ids, err := s.svc.AddDocuments(ctx, converted)
	if err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}
	return ids, nil
}

// ChunkCount returns the number of indexed chunks.
func (s *KnowledgeService) ChunkCount(ctx context.Context) (int, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("knowledge stats: %w", err)
	}
	return stats.ChunkCount, nil
}
