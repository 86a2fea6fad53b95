package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragdesk API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// LLMConfig holds the generation backends and the fallback policy.
type LLMConfig struct {
	DefaultBackend    string   `yaml:"default_backend"`
	FallbackBackends  []string `yaml:"fallback_backends"`
	Temperature       float32  `yaml:"temperature"`
	MaxTokens         int      `yaml:"max_tokens"`
	RequestTimeoutSec int      `yaml:"request_timeout_sec"`

	GigaChat GigaChatConfig     `yaml:"gigachat"`
	DeepSeek OpenAICompatConfig `yaml:"deepseek"`
	OpenAI   OpenAICompatConfig `yaml:"openai"`
}

// GigaChatConfig holds GigaChat API credentials. The API key is the
// authorization master key exchanged for a short-lived access token.
type GigaChatConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// OpenAICompatConfig holds credentials for an OpenAI-compatible chat API.
type OpenAICompatConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// RAGConfig holds the retrieval and orchestration knobs.
type RAGConfig struct {
	VectorWeight        float64 `yaml:"vector_weight"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
	HistoryLimit        int     `yaml:"history_limit"`
}

// KnowledgeConfig holds document chunking settings.
type KnowledgeConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Generation chains wait on slow upstream models
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.LLM.DefaultBackend == "" {
		c.LLM.DefaultBackend = "gigachat"
	}
	if c.LLM.FallbackBackends == nil {
		c.LLM.FallbackBackends = []string{"deepseek", "openai"}
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.RequestTimeoutSec <= 0 {
		c.LLM.RequestTimeoutSec = 60
	}
	if c.LLM.GigaChat.BaseURL == "" {
		c.LLM.GigaChat.BaseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	}
	if c.LLM.DeepSeek.BaseURL == "" {
		c.LLM.DeepSeek.BaseURL = "https://api.deepseek.com"
	}
	if c.LLM.DeepSeek.Model == "" {
		c.LLM.DeepSeek.Model = "deepseek-chat"
	}
	if c.LLM.OpenAI.BaseURL == "" {
		c.LLM.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-3.5-turbo"
	}
	if c.RAG.VectorWeight <= 0 {
		c.RAG.VectorWeight = 0.7
	}
	if c.RAG.SimilarityThreshold <= 0 {
		c.RAG.SimilarityThreshold = 0.7
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.HistoryLimit <= 0 {
		c.RAG.HistoryLimit = 10
	}
	if c.Knowledge.ChunkSize <= 0 {
		c.Knowledge.ChunkSize = 1000
	}
	if c.Knowledge.ChunkOverlap <= 0 {
		c.Knowledge.ChunkOverlap = 200
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.RAG.VectorWeight < 0 || c.RAG.VectorWeight > 1 {
		return fmt.Errorf("rag.vector_weight must be between 0 and 1, got %f", c.RAG.VectorWeight)
	}
	if c.RAG.SimilarityThreshold < 0 || c.RAG.SimilarityThreshold > 1 {
		return fmt.Errorf("rag.similarity_threshold must be between 0 and 1, got %f", c.RAG.SimilarityThreshold)
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("knowledge.chunk_overlap must be smaller than chunk_size")
	}
	if !isKnownBackend(c.LLM.DefaultBackend) {
		return fmt.Errorf("llm.default_backend %q is not a known backend", c.LLM.DefaultBackend)
	}
	for _, name := range c.LLM.FallbackBackends {
		if !isKnownBackend(name) {
			return fmt.Errorf("llm.fallback_backends contains unknown backend %q", name)
		}
	}
	return nil
}

func isKnownBackend(name string) bool {
	switch name {
	case "gigachat", "deepseek", "openai":
		return true
	}
	return false
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
