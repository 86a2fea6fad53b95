package ragdesk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/db"
	dbRedis "github.com/helpdesk-cloud/ragdesk/internal/db/redis"
	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	domrag "github.com/helpdesk-cloud/ragdesk/internal/domain/rag"
	chunksrepo "github.com/helpdesk-cloud/ragdesk/internal/repository/chunks"
	historyrepo "github.com/helpdesk-cloud/ragdesk/internal/repository/history"
	"github.com/helpdesk-cloud/ragdesk/internal/transport/gigachat"
	openaiTransport "github.com/helpdesk-cloud/ragdesk/internal/transport/openai"
	chatuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/chat"
	conversationuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/conversation"
	generationuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/generation"
	knowledgeuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/knowledge"
	promptuc "github.com/helpdesk-cloud/ragdesk/internal/usecase/prompt"
	raguc "github.com/helpdesk-cloud/ragdesk/internal/usecase/rag"
	retrievaluc "github.com/helpdesk-cloud/ragdesk/internal/usecase/retrieval"
)

const (
	defaultReadinessTimeout = 10 * time.Second

	defaultGigaChatBaseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	defaultDeepSeekBaseURL = "https://api.deepseek.com"
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
)

// Embedder turns text into a vector. Implementations wrap whatever
// embedding provider the host application already uses.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult is the vector plus the provider's token accounting.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Client is the ragdesk SDK entry point: the same retrieval, prompt and
// generation pipeline the HTTP server runs, embedded in-process.
type Client struct {
	store        db.Store
	chatSvc      *chatuc.Service
	knowledgeSvc *knowledgeuc.Service
}

// New creates a ragdesk Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions:          1536,
		gigaChatBaseURL:     defaultGigaChatBaseURL,
		defaultBackend:      gigachat.BackendName,
		fallbacks:           []string{"deepseek", "openai"},
		temperature:         0.7,
		maxTokens:           4096,
		attemptTimeout:      60 * time.Second,
		vectorWeight:        0.7,
		similarityThreshold: 0.7,
		topK:                5,
		historyLimit:        10,
		chunkSize:           1000,
		chunkOverlap:        200,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("ragdesk: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("ragdesk: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("ragdesk: database not ready: %w", err)
	}

	client, err := wireClient(ctx, store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return client, nil
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig) (*Client, error) {
	var embedder domain.Embedder = &noopEmbedder{}
	if cfg.embedder != nil {
		embedder = &embedderAdapter{inner: cfg.embedder}
	}

	chunkRepo := chunksrepo.New(store)
	if err := chunkRepo.EnsureIndex(ctx, cfg.dimensions); err != nil {
		return nil, fmt.Errorf("ragdesk: ensure vector index: %w", err)
	}
	histRepo := historyrepo.New(store, cfg.logger)

	registry := generationuc.NewRegistry()
	registry.Register(gigachat.New(&gigachat.Config{
		APIKey:             cfg.gigaChatKey,
		BaseURL:            cfg.gigaChatBaseURL,
		InsecureSkipVerify: cfg.gigaChatInsecure,
		Logger:             cfg.logger,
	}))
	registry.Register(openaiTransport.NewChatBackend(&openaiTransport.BackendConfig{
		Name:    "deepseek",
		APIKey:  cfg.deepSeekKey,
		BaseURL: defaultDeepSeekBaseURL,
		Model:   "deepseek-chat",
		Logger:  cfg.logger,
	}))
	registry.Register(openaiTransport.NewChatBackend(&openaiTransport.BackendConfig{
		Name:    "openai",
		APIKey:  cfg.openAIKey,
		BaseURL: defaultOpenAIBaseURL,
		Model:   "gpt-3.5-turbo",
		Logger:  cfg.logger,
	}))

	generator := generationuc.NewRouter(registry, generationuc.Config{
		DefaultBackend:   cfg.defaultBackend,
		FallbackBackends: cfg.fallbacks,
		AttemptTimeout:   cfg.attemptTimeout,
	}, cfg.logger)

	retriever := retrievaluc.New(embedder, chunkRepo, retrievaluc.Config{
		VectorWeight: cfg.vectorWeight,
		TopK:         cfg.topK,
	})
	ragSvc := raguc.New(retriever, promptuc.New(), generator, raguc.Config{
		SimilarityThreshold: cfg.similarityThreshold,
		Temperature:         cfg.temperature,
		MaxTokens:           cfg.maxTokens,
	}, cfg.logger)
	convSvc := conversationuc.New(histRepo, cfg.historyLimit)

	return &Client{
		store:        store,
		chatSvc:      chatuc.New(histRepo, convSvc, histRepo, ragSvc, cfg.logger),
		knowledgeSvc: knowledgeuc.New(chunkRepo, embedder, knowledgeuc.Config{
			ChunkSize:    cfg.chunkSize,
			ChunkOverlap: cfg.chunkOverlap,
		}, cfg.logger),
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Chat returns the conversation service.
func (c *Client) Chat() *ChatService {
	return &ChatService{svc: c.chatSvc}
}

// Knowledge returns the knowledge base service.
func (c *Client) Knowledge() *KnowledgeService {
	return &KnowledgeService{svc: c.knowledgeSvc}
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New("ragdesk: embedder not configured (use WithEmbedder)")
}

func answerFromResult(sessionID string, r domrag.Result) Answer {
	sources := make([]Source, 0, len(r.ContextSources))
	for _, s := range r.ContextSources {
		sources = append(sources, Source{
			ChunkID:    s.ChunkID,
			Title:      s.Title,
			URL:        s.URL,
			Similarity: s.Similarity,
		})
	}
	return Answer{
		Content:          r.Content,
		SessionID:        sessionID,
		ModelUsed:        r.BackendUsed,
		TokensUsed:       r.TokensUsed,
		ResponseTime:     r.Elapsed,
		Sources:          sources,
		SimilarityScores: r.SimilarityScores,
		Success:          r.Success,
	}
}
