// Package gigachat adapts the GigaChat API. Unlike the OpenAI-compatible
// backends it needs an OAuth exchange: the configured key buys a short-lived
// access token that the completion calls then carry.
package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domgen "github.com/helpdesk-cloud/ragdesk/internal/domain/generation"
)

// BackendName is the registry name of this backend.
const BackendName = "gigachat"

const (
	defaultScope = "GIGACHAT_API_PERS"
	// tokenExpirySkew refreshes the token slightly before the server-side
	// expiry so an in-flight completion never races it.
	tokenExpirySkew = 30 * time.Second
	// fallbackTokenTTL applies when the auth response omits expires_at.
	fallbackTokenTTL = 25 * time.Minute
)

// Config holds the GigaChat backend settings.
type Config struct {
	APIKey             string // authorization key exchanged for access tokens
	BaseURL            string
	Scope              string
	InsecureSkipVerify bool // the GigaChat endpoint ships a non-public CA
	Logger             *zap.Logger
}

// Backend is the GigaChat generation backend with a cached access token.
type Backend struct {
	apiKey  string
	baseURL string
	scope   string
	client  *http.Client
	logger  *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a GigaChat backend.
func New(cfg *Config) *Backend {
	scope := cfg.Scope
	if scope == "" {
		scope = defaultScope
	}

	client := &http.Client{}
	if cfg.InsecureSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Backend{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		scope:   scope,
		client:  client,
		logger:  cfg.Logger,
	}
}

// Name returns the backend's registry name.
func (b *Backend) Name() string { return BackendName }

// Available reports whether the backend holds credentials.
func (b *Backend) Available() bool { return b.apiKey != "" }

// Generate runs one chat completion. An expired or revoked token is
// refreshed once within the same call.
func (b *Backend) Generate(
	ctx context.Context, messages []chat.Message, temperature float32, maxTokens int,
) (domgen.Response, error) {
	token, err := b.accessToken(ctx)
	if err != nil {
		return domgen.Response{}, fmt.Errorf("gigachat token: %w", err)
	}

	resp, err := b.complete(ctx, token, messages, temperature, maxTokens)
	if err == nil || !isUnauthorized(err) {
		return resp, err
	}

	// Token revoked server-side before its reported expiry.
	b.invalidateToken()
	token, err = b.accessToken(ctx)
	if err != nil {
		return domgen.Response{}, fmt.Errorf("gigachat token: %w", err)
	}
	return b.complete(ctx, token, messages, temperature, maxTokens)
}

type completionPayload struct {
	Messages    []wireMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (b *Backend) complete(
	ctx context.Context, token string, messages []chat.Message, temperature float32, maxTokens int,
) (domgen.Response, error) {
	payload := completionPayload{
		Messages:    make([]wireMessage, 0, len(messages)),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, wireMessage{
			Role:    string(m.Role()),
			Content: m.Content(),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domgen.Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domgen.Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return domgen.Response{}, fmt.Errorf("gigachat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domgen.Response{}, &apiError{status: resp.StatusCode, detail: string(detail)}
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domgen.Response{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return domgen.Response{}, errors.New("gigachat completion: empty choices")
	}

	return domgen.Response{
		Content:    parsed.Choices[0].Message.Content,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix milliseconds
}

// accessToken returns the cached token or refreshes it. The mutex covers the
// whole exchange so concurrent callers never trigger parallel refreshes.
func (b *Backend) accessToken(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.token != "" && time.Now().Before(b.tokenExpiry) {
		return b.token, nil
	}

	form := url.Values{"scope": {b.scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/auth", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("RqUID", uuid.NewString())

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request failed: status %d: %s", resp.StatusCode, detail)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", errors.New("token response without access_token")
	}

	b.token = parsed.AccessToken
	if parsed.ExpiresAt > 0 {
		b.tokenExpiry = time.UnixMilli(parsed.ExpiresAt).Add(-tokenExpirySkew)
	} else {
		b.tokenExpiry = time.Now().Add(fallbackTokenTTL)
	}

	b.logger.Debug("Gigachat access token refreshed",
		zap.Time("expires_at", b.tokenExpiry))
	return b.token, nil
}

func (b *Backend) invalidateToken() {
	b.mu.Lock()
	b.token = ""
	b.tokenExpiry = time.Time{}
	b.mu.Unlock()
}

type apiError struct {
	status int
	detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gigachat API error %d: %s", e.status, e.detail)
}

func isUnauthorized(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.status == http.StatusUnauthorized
}
