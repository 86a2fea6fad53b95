package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domgen "github.com/helpdesk-cloud/ragdesk/internal/domain/generation"
)

// ChatBackend is a generation backend for any OpenAI-compatible chat API.
// DeepSeek runs through the same adapter with a BaseURL override.
type ChatBackend struct {
	name   string
	client *openai.Client
	model  string
	apiKey string
	logger *zap.Logger
}

// BackendConfig holds the chat backend settings.
type BackendConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewChatBackend creates an OpenAI-compatible chat backend.
func NewChatBackend(cfg *BackendConfig) *ChatBackend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &ChatBackend{
		name:   cfg.Name,
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		logger: cfg.Logger,
	}
}

// Name returns the backend's registry name.
func (b *ChatBackend) Name() string { return b.name }

// Available reports whether the backend holds credentials.
func (b *ChatBackend) Available() bool { return b.apiKey != "" }

// Generate runs one chat completion.
func (b *ChatBackend) Generate(
	ctx context.Context, messages []chat.Message, temperature float32, maxTokens int,
) (domgen.Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    toWireMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domgen.Response{}, fmt.Errorf("%s chat completion: %w", b.name, err)
	}
	if len(resp.Choices) == 0 {
		return domgen.Response{}, fmt.Errorf("%s chat completion: empty choices", b.name)
	}

	return domgen.Response{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func toWireMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role()),
			Content: m.Content(),
		})
	}
	return out
}
