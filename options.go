package ragdesk

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs    []string
	password string

	embedder   Embedder
	dimensions int

	gigaChatKey      string
	gigaChatBaseURL  string
	gigaChatInsecure bool
	deepSeekKey      string
	openAIKey        string

	defaultBackend string
	fallbacks      []string
	temperature    float32
	maxTokens      int
	attemptTimeout time.Duration

	vectorWeight        float64
	similarityThreshold float64
	topK                int
	historyLimit        int

	chunkSize    int
	chunkOverlap int

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithEmbedder sets the text embedding provider. Required: every query
// and every ingested document is embedded.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithVectorDimensions sets the vector index dimension.
// Defaults to 1536 (text-embedding-3-small).
func WithVectorDimensions(dim int) Option {
	return func(c *clientConfig) {
		c.dimensions = dim
	}
}

// WithGigaChat registers the GigaChat generation backend.
// key is the authorization master key; insecure skips TLS verification
// (the GigaChat endpoint ships a Russian CA certificate).
func WithGigaChat(key string, insecure bool) Option {
	return func(c *clientConfig) {
		c.gigaChatKey = key
		c.gigaChatInsecure = insecure
	}
}

// WithDeepSeek registers the DeepSeek generation backend.
func WithDeepSeek(key string) Option {
	return func(c *clientConfig) {
		c.deepSeekKey = key
	}
}

// WithOpenAI registers the OpenAI generation backend.
func WithOpenAI(key string) Option {
	return func(c *clientConfig) {
		c.openAIKey = key
	}
}

// WithFallbackPolicy sets the default backend and the ordered fallback list.
// Defaults: gigachat, then deepseek, then openai.
func WithFallbackPolicy(defaultBackend string, fallbacks ...string) Option {
	return func(c *clientConfig) {
		c.defaultBackend = defaultBackend
		c.fallbacks = fallbacks
	}
}

// WithGeneration sets sampling parameters and the per-backend attempt timeout.
func WithGeneration(temperature float32, maxTokens int, attemptTimeout time.Duration) Option {
	return func(c *clientConfig) {
		c.temperature = temperature
		c.maxTokens = maxTokens
		c.attemptTimeout = attemptTimeout
	}
}

// WithRetrieval tunes hybrid search: the convex weight of the vector score,
// the similarity cutoff for context inclusion and the result count.
// Defaults: 0.7, 0.7, 5.
func WithRetrieval(vectorWeight, similarityThreshold float64, topK int) Option {
	return func(c *clientConfig) {
		c.vectorWeight = vectorWeight
		c.similarityThreshold = similarityThreshold
		c.topK = topK
	}
}

// WithHistoryLimit sets how many dialogue turns are carried into the prompt.
// Default: 10.
func WithHistoryLimit(n int) Option {
	return func(c *clientConfig) {
		c.historyLimit = n
	}
}

// WithChunking sets the document chunk window and overlap in runes.
// Defaults: 1000, 200.
func WithChunking(size, overlap int) Option {
	return func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	}
}

// WithLogger enables structured logging. Default: no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
