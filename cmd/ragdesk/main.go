package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/config"
	dbRedis "github.com/helpdesk-cloud/ragdesk/internal/db/redis"
	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	logpkg "github.com/helpdesk-cloud/ragdesk/internal/logger"
	"github.com/helpdesk-cloud/ragdesk/internal/metrics"
	chunksrepo "github.com/helpdesk-cloud/ragdesk/internal/repository/chunks"
	"github.com/helpdesk-cloud/ragdesk/internal/repository/embcache"
	historyrepo "github.com/helpdesk-cloud/ragdesk/internal/repository/history"
	chiTransport "github.com/helpdesk-cloud/ragdesk/internal/transport/chi"
	"github.com/helpdesk-cloud/ragdesk/internal/transport/gigachat"
	openaiTransport "github.com/helpdesk-cloud/ragdesk/internal/transport/openai"
	chatuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/chat"
	conversationuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/conversation"
	generationuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/generation"
	healthuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/health"
	knowledgeuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/knowledge"
	promptuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/prompt"
	raguc "github.com/helpdesk-cloud/ragdesk/internal/usecase/rag"
	retrievaluc "github.com/helpdesk-cloud/ragdesk/internal/usecase/retrieval"
	"github.com/helpdesk-cloud/ragdesk/internal/version"
)

func main() {
	// .env is optional — absent in containers, handy for local runs
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragdesk API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register LLM metrics explicitly (no init())
	metrics.RegisterLLMMetrics()

	// Embedder chain: OpenAI-compatible provider -> Redis cache
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	embedder := embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Generation backends. All known backends are registered; availability
	// (credentials present) is checked per request by the router.
	registry := generationuc.NewRegistry()
	registry.Register(gigachat.New(&gigachat.Config{
		APIKey:             cfg.LLM.GigaChat.APIKey,
		BaseURL:            cfg.LLM.GigaChat.BaseURL,
		InsecureSkipVerify: cfg.LLM.GigaChat.InsecureSkipVerify,
		Logger:             logger,
	}))
	registry.Register(openaiTransport.NewChatBackend(&openaiTransport.BackendConfig{
		Name:    "deepseek",
		APIKey:  cfg.LLM.DeepSeek.APIKey,
		BaseURL: cfg.LLM.DeepSeek.BaseURL,
		Model:   cfg.LLM.DeepSeek.Model,
		Logger:  logger,
	}))
	registry.Register(openaiTransport.NewChatBackend(&openaiTransport.BackendConfig{
		Name:    "openai",
		APIKey:  cfg.LLM.OpenAI.APIKey,
		BaseURL: cfg.LLM.OpenAI.BaseURL,
		Model:   cfg.LLM.OpenAI.Model,
		Logger:  logger,
	}))
	logger.Info("Generation backends registered",
		zap.Strings("registered", registry.Names()),
		zap.Strings("available", registry.Available()),
		zap.String("default", cfg.LLM.DefaultBackend),
	)

	generator := generationuc.NewRouter(registry, generationuc.Config{
		DefaultBackend:   cfg.LLM.DefaultBackend,
		FallbackBackends: cfg.LLM.FallbackBackends,
		AttemptTimeout:   time.Duration(cfg.LLM.RequestTimeoutSec) * time.Second,
	}, logger)

	// Repositories
	chunkRepo := chunksrepo.New(store)
	if err := chunkRepo.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	histRepo := historyrepo.New(store, logger)

	// Use case services
	retriever := retrievaluc.New(embedder, chunkRepo, retrievaluc.Config{
		VectorWeight: cfg.RAG.VectorWeight,
		TopK:         cfg.RAG.TopK,
	})
	ragSvc := raguc.New(retriever, promptuc.New(), generator, raguc.Config{
		SimilarityThreshold: cfg.RAG.SimilarityThreshold,
		Temperature:         cfg.LLM.Temperature,
		MaxTokens:           cfg.LLM.MaxTokens,
	}, logger)
	convSvc := conversationuc.New(histRepo, cfg.RAG.HistoryLimit)
	chatSvc := chatuc.New(histRepo, convSvc, histRepo, ragSvc, logger)
	knowledgeSvc := knowledgeuc.New(chunkRepo, embedder, knowledgeuc.Config{
		ChunkSize:    cfg.Knowledge.ChunkSize,
		ChunkOverlap: cfg.Knowledge.ChunkOverlap,
	}, logger)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), registry)

	server := chiTransport.NewServer(
		chatSvc, knowledgeSvc, healthSvc, registry, cfg.LLM.DefaultBackend, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
