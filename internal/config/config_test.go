package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_VectorWeightOutOfRange(t *testing.T) {
	for _, w := range []float64{-0.1, 1.1} {
		cfg := validConfig()
		cfg.RAG.VectorWeight = w

		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for vector_weight=%v", w)
		}
	}
}

func TestValidate_SimilarityThresholdOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.RAG.SimilarityThreshold = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for similarity_threshold=1.5")
	}
}

func TestValidate_ChunkOverlapNotBelowSize(t *testing.T) {
	cfg := validConfig()
	cfg.Knowledge.ChunkSize = 100
	cfg.Knowledge.ChunkOverlap = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for chunk_overlap >= chunk_size")
	}
}

func TestValidate_UnknownDefaultBackend(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.DefaultBackend = "claude"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown default backend")
	}

	expected := `llm.default_backend "claude" is not a known backend`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_UnknownFallbackBackend(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.FallbackBackends = []string{"deepseek", "mistral"}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown fallback backend")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 180 {
		t.Errorf("expected WriteTimeoutSec=180, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.LLM.DefaultBackend != "gigachat" {
		t.Errorf("expected DefaultBackend=gigachat, got %q", cfg.LLM.DefaultBackend)
	}
	if len(cfg.LLM.FallbackBackends) != 2 ||
		cfg.LLM.FallbackBackends[0] != "deepseek" || cfg.LLM.FallbackBackends[1] != "openai" {
		t.Errorf("expected FallbackBackends=[deepseek openai], got %v", cfg.LLM.FallbackBackends)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("expected Temperature=0.7, got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("expected MaxTokens=4096, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.RequestTimeoutSec != 60 {
		t.Errorf("expected RequestTimeoutSec=60, got %d", cfg.LLM.RequestTimeoutSec)
	}
	if cfg.LLM.DeepSeek.Model != "deepseek-chat" {
		t.Errorf("expected DeepSeek model=deepseek-chat, got %q", cfg.LLM.DeepSeek.Model)
	}
	if cfg.LLM.OpenAI.Model != "gpt-3.5-turbo" {
		t.Errorf("expected OpenAI model=gpt-3.5-turbo, got %q", cfg.LLM.OpenAI.Model)
	}
	if cfg.RAG.VectorWeight != 0.7 {
		t.Errorf("expected VectorWeight=0.7, got %v", cfg.RAG.VectorWeight)
	}
	if cfg.RAG.SimilarityThreshold != 0.7 {
		t.Errorf("expected SimilarityThreshold=0.7, got %v", cfg.RAG.SimilarityThreshold)
	}
	if cfg.RAG.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.RAG.TopK)
	}
	if cfg.RAG.HistoryLimit != 10 {
		t.Errorf("expected HistoryLimit=10, got %d", cfg.RAG.HistoryLimit)
	}
	if cfg.Knowledge.ChunkSize != 1000 {
		t.Errorf("expected ChunkSize=1000, got %d", cfg.Knowledge.ChunkSize)
	}
	if cfg.Knowledge.ChunkOverlap != 200 {
		t.Errorf("expected ChunkOverlap=200, got %d", cfg.Knowledge.ChunkOverlap)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		LLM: LLMConfig{
			DefaultBackend:   "openai",
			FallbackBackends: []string{"gigachat"},
			MaxTokens:        1024,
		},
		RAG: RAGConfig{VectorWeight: 0.5, TopK: 3},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.LLM.DefaultBackend != "openai" {
		t.Errorf("expected DefaultBackend=openai, got %q", cfg.LLM.DefaultBackend)
	}
	if len(cfg.LLM.FallbackBackends) != 1 || cfg.LLM.FallbackBackends[0] != "gigachat" {
		t.Errorf("expected FallbackBackends=[gigachat], got %v", cfg.LLM.FallbackBackends)
	}
	if cfg.LLM.MaxTokens != 1024 {
		t.Errorf("expected MaxTokens=1024, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.RAG.VectorWeight != 0.5 {
		t.Errorf("expected VectorWeight=0.5, got %v", cfg.RAG.VectorWeight)
	}
	if cfg.RAG.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.RAG.TopK)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RAGDESK_TEST_ADDR", "redis.internal:6390")
	os.Unsetenv("RAGDESK_TEST_UNSET")

	in := []byte("addr: ${RAGDESK_TEST_ADDR}\nlevel: ${RAGDESK_TEST_UNSET:-info}\nempty: ${RAGDESK_TEST_UNSET}\n")
	out := string(expandEnvVars(in))

	want := "addr: redis.internal:6390\nlevel: info\nempty: \n"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}

	os.Unsetenv("ENV")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}
}
