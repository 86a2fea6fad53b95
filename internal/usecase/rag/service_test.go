package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domgen "github.com/helpdesk-cloud/ragdesk/internal/domain/generation"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

type mockRetriever struct {
	results []retrieval.Result
	err     error
	panics  bool
}

func (m *mockRetriever) Retrieve(context.Context, string) ([]retrieval.Result, error) {
	if m.panics {
		panic("index corrupted")
	}
	return m.results, m.err
}

type mockAssembler struct {
	gotResults []retrieval.Result
	gotHistory []chat.Turn
}

func (m *mockAssembler) Build(query string, results []retrieval.Result, history []chat.Turn) []chat.Message {
	m.gotResults = results
	m.gotHistory = history
	return []chat.Message{chat.System("система"), chat.User(query)}
}

type mockGenerator struct {
	outcome domgen.Outcome
	gotReq  domgen.Request
	gotPref string
	called  int
}

func (m *mockGenerator) Generate(_ context.Context, req domgen.Request, preferred string) domgen.Outcome {
	m.called++
	m.gotReq = req
	m.gotPref = preferred
	return m.outcome
}

func scored(t *testing.T, id string, combined float64) retrieval.Result {
	t.Helper()
	return retrieval.NewResult(id, "текст "+id, retrieval.Metadata{Title: "doc " + id}, combined, combined, combined)
}

func newService(r Retriever, g Generator) (*Service, *mockAssembler) {
	a := &mockAssembler{}
	svc := New(r, a, g, Config{
		SimilarityThreshold: 0.7,
		Temperature:         0.7,
		MaxTokens:           4096,
	}, zap.NewNop())
	return svc, a
}

func TestProcess_HappyPath(t *testing.T) {
	gen := &mockGenerator{outcome: domgen.Outcome{
		Content: "ответ", BackendUsed: "gigachat", TokensUsed: 42, Success: true,
	}}
	svc, _ := newService(&mockRetriever{results: []retrieval.Result{
		scored(t, "c1", 0.9),
		scored(t, "c2", 0.8),
	}}, gen)

	res := svc.Process(context.Background(), "вопрос", nil, "")
	if !res.Success {
		t.Fatalf("expected success, got err %v", res.Err)
	}
	if res.Content != "ответ" || res.BackendUsed != "gigachat" || res.TokensUsed != 42 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.ContextSources) != 2 || len(res.SimilarityScores) != 2 {
		t.Fatalf("sources/scores = %d/%d, want 2/2", len(res.ContextSources), len(res.SimilarityScores))
	}
	if res.ContextSources[0].ChunkID != "c1" || res.SimilarityScores[0] != 0.9 {
		t.Errorf("first source = %+v score %v", res.ContextSources[0], res.SimilarityScores[0])
	}
}

func TestProcess_ThresholdFiltersContext(t *testing.T) {
	gen := &mockGenerator{outcome: domgen.Outcome{Content: "ответ", BackendUsed: "gigachat", Success: true}}
	svc, asm := newService(&mockRetriever{results: []retrieval.Result{
		scored(t, "keep", 0.75),
		scored(t, "drop", 0.5),
	}}, gen)

	res := svc.Process(context.Background(), "вопрос", nil, "")
	if len(asm.gotResults) != 1 || asm.gotResults[0].ChunkID() != "keep" {
		t.Errorf("assembler received %d results, want only the above-threshold one", len(asm.gotResults))
	}
	if len(res.ContextSources) != 1 {
		t.Errorf("sources = %d, want 1", len(res.ContextSources))
	}
}

// Retrieval failure degrades to generation without context instead of an error.
func TestProcess_RetrievalErrorAnswersWithoutContext(t *testing.T) {
	gen := &mockGenerator{outcome: domgen.Outcome{Content: "ответ", BackendUsed: "gigachat", Success: true}}
	svc, asm := newService(&mockRetriever{err: errors.New("redis down")}, gen)

	res := svc.Process(context.Background(), "вопрос", nil, "")
	if !res.Success {
		t.Fatalf("expected success without context, got err %v", res.Err)
	}
	if gen.called != 1 {
		t.Error("generation must still run on retrieval failure")
	}
	if asm.gotResults != nil {
		t.Errorf("assembler received %d results, want none", len(asm.gotResults))
	}
	if res.ContextSources != nil || res.SimilarityScores != nil {
		t.Error("context sources must be empty when retrieval failed")
	}
}

func TestProcess_ExhaustionPassesApologyThrough(t *testing.T) {
	gen := &mockGenerator{outcome: domgen.Outcome{
		Content:     "Извините, в данный момент сервис недоступен. Попробуйте позже.",
		BackendUsed: domgen.FallbackBackendName,
		Success:     false,
		Err:         errors.New("all generation backends exhausted"),
	}}
	svc, _ := newService(&mockRetriever{}, gen)

	res := svc.Process(context.Background(), "вопрос", nil, "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.BackendUsed != domgen.FallbackBackendName {
		t.Errorf("backend = %q, want fallback sentinel", res.BackendUsed)
	}
	if !strings.HasPrefix(res.Content, "Извините") {
		t.Errorf("content = %q, want apology", res.Content)
	}
}

func TestProcess_PanicRecoveredToGenericFailure(t *testing.T) {
	gen := &mockGenerator{}
	svc, _ := newService(&mockRetriever{panics: true}, gen)

	res := svc.Process(context.Background(), "вопрос", nil, "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Content != GenericFailureMessage {
		t.Errorf("content = %q, want generic failure text", res.Content)
	}
	if res.BackendUsed != errorBackendName {
		t.Errorf("backend = %q, want %q", res.BackendUsed, errorBackendName)
	}
	if res.Err == nil {
		t.Error("recovered result must carry the panic as an error")
	}
	if gen.called != 0 {
		t.Error("generation must not run after a pipeline panic")
	}
}

func TestProcess_PreferredBackendForwarded(t *testing.T) {
	gen := &mockGenerator{outcome: domgen.Outcome{Content: "ответ", BackendUsed: "deepseek", Success: true}}
	svc, _ := newService(&mockRetriever{}, gen)

	svc.Process(context.Background(), "вопрос", nil, "deepseek")
	if gen.gotPref != "deepseek" {
		t.Errorf("preferred = %q, want deepseek", gen.gotPref)
	}
}

func TestProcess_HistoryForwardedToAssembler(t *testing.T) {
	gen := &mockGenerator{outcome: domgen.Outcome{Content: "ответ", Success: true}}
	svc, asm := newService(&mockRetriever{}, gen)

	turn, err := chat.NewTurn(chat.RoleUser, "ранний вопрос", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.Process(context.Background(), "вопрос", []chat.Turn{turn}, "")
	if len(asm.gotHistory) != 1 || asm.gotHistory[0].Content() != "ранний вопрос" {
		t.Errorf("history not forwarded: %+v", asm.gotHistory)
	}
}
