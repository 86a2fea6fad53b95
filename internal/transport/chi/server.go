// Package chi exposes the HTTP API: chat, knowledge ingestion, model
// listing, health and metrics.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	domrag "github.com/helpdesk-cloud/ragdesk/internal/domain/rag"
	chatuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/chat"
	healthuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/health"
	knowledgeuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/knowledge"
)

const maxDocumentsPerRequest = 100

// BackendDirectory lists generation backends for the models endpoint.
type BackendDirectory interface {
	Names() []string
	Available() []string
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the HTTP API over the chat and knowledge services.
type Server struct {
	chat          *chatuc.Service
	knowledge     *knowledgeuc.Service
	health        *healthuc.Service
	backends      BackendDirectory
	defaultModel  string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	chat *chatuc.Service,
	knowledge *knowledgeuc.Service,
	health *healthuc.Service,
	backends BackendDirectory,
	defaultModel string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:         chat,
		knowledge:    knowledge,
		health:       health,
		backends:     backends,
		defaultModel: defaultModel,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, "empty_query"),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
	}
	return s
}

// Register mounts the API routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat/message", s.PostChatMessage)
		r.Get("/chat/sessions", s.ListSessions)
		r.Get("/chat/sessions/{sessionID}/messages", s.SessionMessages)
		r.Post("/knowledge/documents", s.AddDocuments)
		r.Get("/knowledge/stats", s.KnowledgeStats)
		r.Get("/models", s.ListModels)
	})
}

type chatMessageRequest struct {
	Message        string `json:"message"`
	SessionID      string `json:"session_id,omitempty"`
	PreferredModel string `json:"preferred_model,omitempty"`
}

type chatMessageResponse struct {
	Content          string                 `json:"content"`
	SessionID        string                 `json:"session_id"`
	ModelUsed        string                 `json:"model_used"`
	TokensUsed       int                    `json:"tokens_used"`
	ResponseTime     float64                `json:"response_time"`
	ContextSources   []domrag.ContextSource `json:"context_sources"`
	SimilarityScores []float64              `json:"similarity_scores"`
	Success          bool                   `json:"success"`
	Error            string                 `json:"error,omitempty"`
}

// PostChatMessage handles POST /api/chat/message.
func (s *Server) PostChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	sessionID, res, err := s.chat.SendMessage(r.Context(), req.SessionID, req.Message, req.PreferredModel)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := chatMessageResponse{
		Content:          res.Content,
		SessionID:        sessionID,
		ModelUsed:        res.BackendUsed,
		TokensUsed:       res.TokensUsed,
		ResponseTime:     res.Elapsed.Seconds(),
		ContextSources:   res.ContextSources,
		SimilarityScores: res.SimilarityScores,
		Success:          res.Success,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListSessions handles GET /api/chat/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.chat.Sessions(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]sessionResponse, len(sessions))
	for i, session := range sessions {
		items[i] = sessionResponse{
			ID:        session.ID(),
			CreatedAt: session.CreatedAt().UTC(),
			UpdatedAt: session.UpdatedAt().UTC(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionMessages handles GET /api/chat/sessions/{sessionID}/messages.
func (s *Server) SessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := s.chat.SessionMessages(r.Context(), sessionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]messageResponse, len(turns))
	for i, turn := range turns {
		items[i] = messageResponse{
			Role:      string(turn.Role()),
			Content:   turn.Content(),
			CreatedAt: turn.CreatedAt().UTC(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   items,
	})
}

type addDocumentsRequest struct {
	Documents []documentItem `json:"documents"`
}

type documentItem struct {
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	Text       string `json:"text"`
}

// AddDocuments handles POST /api/knowledge/documents.
func (s *Server) AddDocuments(w http.ResponseWriter, r *http.Request) {
	var req addDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 || len(req.Documents) > maxDocumentsPerRequest {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"documents count must be between 1 and 100")
		return
	}

	docs := make([]knowledgeuc.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = knowledgeuc.Document{
			Title:      d.Title,
			SourceURL:  d.URL,
			SourceType: d.SourceType,
			Text:       d.Text,
		}
	}

	ids, err := s.knowledge.AddDocuments(r.Context(), docs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"chunk_ids": ids,
		"count":     len(ids),
	})
}

// KnowledgeStats handles GET /api/knowledge/stats.
func (s *Server) KnowledgeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.knowledge.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"chunk_count": stats.ChunkCount})
}

// ListModels handles GET /api/models.
func (s *Server) ListModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":    s.backends.Available(),
		"default":   s.defaultModel,
		"installed": s.backends.Names(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrSessionNotFound,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
