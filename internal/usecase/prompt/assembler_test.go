package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

func scoredResult(t *testing.T, id, text string, meta retrieval.Metadata, combined float64) retrieval.Result {
	t.Helper()
	return retrieval.NewResult(id, text, meta, combined, combined, combined)
}

func TestBuild_FixedMessageOrder(t *testing.T) {
	a := New()

	userTurn, err := chat.NewTurn(chat.RoleUser, "как настроить пайплайн?", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assistantTurn, err := chat.NewTurn(chat.RoleAssistant, "добавьте .gitlab-ci.yml", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := []retrieval.Result{
		scoredResult(t, "c1", "описание пайплайна", retrieval.Metadata{Title: "CI Guide"}, 0.8),
	}

	got := a.Build("а как добавить стадию?", results, []chat.Turn{userTurn, assistantTurn})
	if len(got) != 5 {
		t.Fatalf("messages = %d, want 5", len(got))
	}

	wantRoles := []chat.Role{chat.RoleSystem, chat.RoleSystem, chat.RoleUser, chat.RoleAssistant, chat.RoleUser}
	for i, role := range wantRoles {
		if got[i].Role() != role {
			t.Errorf("message %d role = %q, want %q", i, got[i].Role(), role)
		}
	}

	if got[0].Content() != systemPrompt {
		t.Error("system prompt must come first")
	}
	if !strings.HasPrefix(got[1].Content(), "Контекст для ответа:") {
		t.Errorf("context message = %q, want context block", got[1].Content())
	}
	if got[4].Content() != "а как добавить стадию?" {
		t.Errorf("last message = %q, want live query", got[4].Content())
	}
}

func TestBuild_EmptyContextOmitsMessage(t *testing.T) {
	a := New()

	got := a.Build("вопрос", nil, nil)
	if len(got) != 2 {
		t.Fatalf("messages = %d, want 2", len(got))
	}
	for _, m := range got {
		if strings.Contains(m.Content(), "Контекст для ответа:") {
			t.Error("context block must be omitted when retrieval is empty")
		}
	}
	if got[1].Role() != chat.RoleUser || got[1].Content() != "вопрос" {
		t.Errorf("last message = %q %q, want user query", got[1].Role(), got[1].Content())
	}
}

func TestBuild_HistoryPreservesOrder(t *testing.T) {
	a := New()

	turns := make([]chat.Turn, 0, 4)
	for i, content := range []string{"в1", "о1", "в2", "о2"} {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		turn, err := chat.NewTurn(role, content, time.Now())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		turns = append(turns, turn)
	}

	got := a.Build("в3", nil, turns)
	if len(got) != 6 {
		t.Fatalf("messages = %d, want 6", len(got))
	}
	for i, want := range []string{"в1", "о1", "в2", "о2"} {
		if got[i+1].Content() != want {
			t.Errorf("history message %d = %q, want %q", i, got[i+1].Content(), want)
		}
	}
}

func TestRenderContext_DocumentFormat(t *testing.T) {
	results := []retrieval.Result{
		scoredResult(t, "c1", "текст первого документа", retrieval.Metadata{
			Title:     "CI Guide",
			SourceURL: "https://wiki.local/ci",
		}, 0.69),
		scoredResult(t, "c2", "текст второго документа", retrieval.Metadata{}, 0.57),
	}

	got := renderContext(results)

	if !strings.Contains(got, "--- Документ 1 (сходство: 0.69) ---") {
		t.Errorf("missing first document header in %q", got)
	}
	if !strings.Contains(got, "--- Документ 2 (сходство: 0.57) ---") {
		t.Errorf("missing second document header in %q", got)
	}
	if !strings.Contains(got, "Источник: CI Guide (https://wiki.local/ci)") {
		t.Errorf("missing source line in %q", got)
	}
	if !strings.Contains(got, "текст первого документа") || !strings.Contains(got, "текст второго документа") {
		t.Error("document texts missing from context")
	}
}

func TestRenderContext_NoMetadataSkipsSourceLine(t *testing.T) {
	got := renderContext([]retrieval.Result{
		scoredResult(t, "c1", "текст", retrieval.Metadata{}, 0.5),
	})

	if strings.Contains(got, "Источник") {
		t.Errorf("source line must be skipped without metadata, got %q", got)
	}
}

func TestRenderSource_URLWithoutTitle(t *testing.T) {
	got := renderSource(retrieval.Metadata{SourceURL: "https://wiki.local/ci"})
	if got != "(https://wiki.local/ci)" {
		t.Errorf("source = %q, want bare url in parens", got)
	}
}
