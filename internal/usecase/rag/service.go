// Package rag orchestrates one user query end to end: retrieve context,
// filter by threshold, assemble the prompt, generate, normalize the answer.
package rag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domgen "github.com/helpdesk-cloud/ragdesk/internal/domain/generation"
	domrag "github.com/helpdesk-cloud/ragdesk/internal/domain/rag"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// GenericFailureMessage is returned when the pipeline itself breaks, as
// opposed to every backend failing (which yields the router's apology).
const GenericFailureMessage = "Извините, произошла ошибка при обработке вашего запроса. Попробуйте позже."

// errorBackendName marks answers produced by no backend at all.
const errorBackendName = "error"

// Config holds pipeline parameters.
type Config struct {
	SimilarityThreshold float64
	Temperature         float32
	MaxTokens           int
}

// Service is the RAG orchestrator.
type Service struct {
	retriever Retriever
	assembler Assembler
	generator Generator
	cfg       Config
	logger    *zap.Logger
}

// New creates the orchestrator.
func New(retriever Retriever, assembler Assembler, generator Generator, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Process answers one user query. It always returns a Result, never a raw
// error: retrieval failures degrade to an empty context, backend exhaustion
// surfaces the router's apology, and panics anywhere in the pipeline are
// recovered into a generic failure answer.
func (s *Service) Process(ctx context.Context, query string, history []chat.Turn, preferred string) (result domrag.Result) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Recovered panic in rag pipeline", zap.Any("panic", rec))
			result = domrag.Result{
				Content:     GenericFailureMessage,
				BackendUsed: errorBackendName,
				Elapsed:     time.Since(start),
				Success:     false,
				Err:         fmt.Errorf("pipeline panic: %v", rec),
			}
		}
	}()

	filtered := s.retrieveContext(ctx, query)
	messages := s.assembler.Build(query, filtered, history)

	req, err := domgen.NewRequest(messages, s.cfg.Temperature, s.cfg.MaxTokens)
	if err != nil {
		s.logger.Error("Invalid generation request", zap.Error(err))
		return domrag.Result{
			Content:     GenericFailureMessage,
			BackendUsed: errorBackendName,
			Elapsed:     time.Since(start),
			Success:     false,
			Err:         fmt.Errorf("build request: %w", err),
		}
	}

	out := s.generator.Generate(ctx, req, preferred)
	sources, scores := domrag.SourcesFromResults(filtered)

	elapsed := time.Since(start)
	s.logger.Info("Rag query processed",
		zap.String("backend", out.BackendUsed),
		zap.Int("context_documents", len(filtered)),
		zap.Bool("success", out.Success),
		zap.Duration("elapsed", elapsed))

	return domrag.Result{
		Content:          out.Content,
		BackendUsed:      out.BackendUsed,
		TokensUsed:       out.TokensUsed,
		Elapsed:          elapsed,
		ContextSources:   sources,
		SimilarityScores: scores,
		Success:          out.Success,
		Err:              out.Err,
	}
}

// retrieveContext runs retrieval and threshold filtering. Failures are
// absorbed: an answer without context beats no answer.
func (s *Service) retrieveContext(ctx context.Context, query string) []retrieval.Result {
	results, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		s.logger.Warn("Context retrieval failed, answering without context", zap.Error(err))
		return nil
	}
	return retrieval.FilterByThreshold(results, s.cfg.SimilarityThreshold)
}
