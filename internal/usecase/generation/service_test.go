package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	domgen "github.com/helpdesk-cloud/ragdesk/internal/domain/generation"
)

type mockBackend struct {
	name      string
	available bool
	response  domgen.Response
	err       error
	calls     int
	sleep     time.Duration
}

func (m *mockBackend) Name() string    { return m.name }
func (m *mockBackend) Available() bool { return m.available }

func (m *mockBackend) Generate(
	ctx context.Context, _ []chat.Message, _ float32, _ int,
) (domgen.Response, error) {
	m.calls++
	if m.sleep > 0 {
		select {
		case <-time.After(m.sleep):
		case <-ctx.Done():
			return domgen.Response{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domgen.Response{}, m.err
	}
	return m.response, nil
}

func mustRequest(t *testing.T) domgen.Request {
	t.Helper()
	msg, err := chat.NewMessage(chat.RoleUser, "вопрос")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := domgen.NewRequest([]chat.Message{msg}, 0.7, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return req
}

func newRouter(backends []*mockBackend, defName string, fallbacks []string) *Router {
	reg := NewRegistry()
	for _, b := range backends {
		reg.Register(b)
	}
	return NewRouter(reg, Config{
		DefaultBackend:   defName,
		FallbackBackends: fallbacks,
		AttemptTimeout:   time.Second,
	}, zap.NewNop())
}

func TestAttemptOrder_PreferredFirst(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: true},
		{name: "deepseek", available: true},
		{name: "openai", available: true},
	}, "gigachat", []string{"deepseek", "openai"})

	order := r.AttemptOrder("deepseek")
	want := []string{"deepseek", "gigachat", "openai"}
	assertOrder(t, order, want)
}

// A preferred backend that is registered but holds no credentials must not
// displace the default: the chain degrades to default + fallbacks.
func TestAttemptOrder_UnavailablePreferredKeepsDefault(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: true},
		{name: "deepseek", available: false},
		{name: "openai", available: false},
	}, "gigachat", []string{"deepseek", "openai"})

	order := r.AttemptOrder("deepseek")
	assertOrder(t, order, []string{"gigachat"})
}

func TestGenerate_UnavailablePreferredStillAnswers(t *testing.T) {
	def := &mockBackend{name: "gigachat", available: true, response: domgen.Response{Content: "ответ"}}
	dead := &mockBackend{name: "deepseek", available: false}
	r := newRouter([]*mockBackend{def, dead}, "gigachat", []string{"deepseek"})

	out := r.Generate(context.Background(), mustRequest(t), "deepseek")
	if !out.Success {
		t.Fatalf("expected success, got err %v", out.Err)
	}
	if out.BackendUsed != "gigachat" {
		t.Errorf("backend = %q, want gigachat", out.BackendUsed)
	}
	if dead.calls != 0 {
		t.Errorf("unavailable backend called %d times", dead.calls)
	}
}

func TestAttemptOrder_DefaultWhenNoPreference(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: true},
		{name: "deepseek", available: true},
		{name: "openai", available: true},
	}, "gigachat", []string{"deepseek", "openai"})

	order := r.AttemptOrder("")
	assertOrder(t, order, []string{"gigachat", "deepseek", "openai"})
}

// Preferred backend not registered, fallbacks unavailable: the chain
// collapses to the default backend alone.
func TestAttemptOrder_UnknownPreferredFallsBackToDefault(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: true},
	}, "gigachat", []string{"deepseek", "openai"})

	order := r.AttemptOrder("deepseek")
	assertOrder(t, order, []string{"gigachat"})
}

func TestAttemptOrder_SkipsDuplicates(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: true},
		{name: "deepseek", available: true},
	}, "gigachat", []string{"gigachat", "deepseek"})

	order := r.AttemptOrder("")
	assertOrder(t, order, []string{"gigachat", "deepseek"})
}

func TestAttemptOrder_SkipsUnavailable(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: false},
		{name: "deepseek", available: true},
	}, "gigachat", []string{"deepseek"})

	order := r.AttemptOrder("")
	assertOrder(t, order, []string{"deepseek"})
}

func TestAttemptOrder_Deterministic(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: true},
		{name: "deepseek", available: true},
		{name: "openai", available: true},
	}, "gigachat", []string{"deepseek", "openai"})

	first := r.AttemptOrder("")
	for range [10]int{} {
		assertOrder(t, r.AttemptOrder(""), first)
	}
}

func TestGenerate_FirstSuccessStopsChain(t *testing.T) {
	primary := &mockBackend{name: "gigachat", available: true, response: domgen.Response{Content: "ответ", TokensUsed: 12}}
	secondary := &mockBackend{name: "deepseek", available: true, response: domgen.Response{Content: "другой"}}
	r := newRouter([]*mockBackend{primary, secondary}, "gigachat", []string{"deepseek"})

	out := r.Generate(context.Background(), mustRequest(t), "")
	if !out.Success {
		t.Fatalf("expected success, got err %v", out.Err)
	}
	if out.BackendUsed != "gigachat" || out.Content != "ответ" {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if out.TokensUsed != 12 {
		t.Errorf("TokensUsed = %d, want 12", out.TokensUsed)
	}
	if primary.calls != 1 || secondary.calls != 0 {
		t.Errorf("calls = %d/%d, want 1/0", primary.calls, secondary.calls)
	}
	if len(out.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(out.Attempts))
	}
}

func TestGenerate_FallsThroughToNextBackend(t *testing.T) {
	primary := &mockBackend{name: "gigachat", available: true, err: errors.New("401")}
	secondary := &mockBackend{name: "deepseek", available: true, response: domgen.Response{Content: "ответ"}}
	r := newRouter([]*mockBackend{primary, secondary}, "gigachat", []string{"deepseek"})

	out := r.Generate(context.Background(), mustRequest(t), "")
	if !out.Success {
		t.Fatalf("expected success, got err %v", out.Err)
	}
	if out.BackendUsed != "deepseek" {
		t.Errorf("backend = %q, want deepseek", out.BackendUsed)
	}
	if len(out.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(out.Attempts))
	}
	if out.Attempts[0].Err == nil || out.Attempts[1].Err != nil {
		t.Error("attempt errors recorded incorrectly")
	}
}

func TestGenerate_AllFail_ApologySentinel(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: true, err: errors.New("down")},
		{name: "deepseek", available: true, err: errors.New("down")},
	}, "gigachat", []string{"deepseek"})

	out := r.Generate(context.Background(), mustRequest(t), "")
	if out.Success {
		t.Fatal("expected failure")
	}
	if out.BackendUsed != domgen.FallbackBackendName {
		t.Errorf("backend = %q, want %q", out.BackendUsed, domgen.FallbackBackendName)
	}
	if out.Content != ApologyMessage {
		t.Errorf("content = %q, want apology", out.Content)
	}
	if !errors.Is(out.Err, domain.ErrAllBackendsExhausted) {
		t.Errorf("err = %v, want ErrAllBackendsExhausted", out.Err)
	}
	if len(out.Attempts) != 2 {
		t.Errorf("attempts = %d, want 2", len(out.Attempts))
	}
}

func TestGenerate_EmptyRegistry(t *testing.T) {
	r := newRouter(nil, "gigachat", nil)

	out := r.Generate(context.Background(), mustRequest(t), "")
	if out.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(out.Err, domain.ErrNoBackendsConfigured) {
		t.Errorf("err = %v, want ErrNoBackendsConfigured", out.Err)
	}
	if out.Content != ApologyMessage {
		t.Errorf("content = %q, want apology", out.Content)
	}
}

func TestGenerate_NoAvailableBackends(t *testing.T) {
	r := newRouter([]*mockBackend{
		{name: "gigachat", available: false},
	}, "gigachat", nil)

	out := r.Generate(context.Background(), mustRequest(t), "")
	if out.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(out.Err, domain.ErrAllBackendsExhausted) {
		t.Errorf("err = %v, want ErrAllBackendsExhausted", out.Err)
	}
}

func TestGenerate_CanceledContextStopsChain(t *testing.T) {
	slow := &mockBackend{name: "gigachat", available: true, sleep: 5 * time.Second}
	next := &mockBackend{name: "deepseek", available: true, response: domgen.Response{Content: "ответ"}}
	r := newRouter([]*mockBackend{slow, next}, "gigachat", []string{"deepseek"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out := r.Generate(ctx, mustRequest(t), "")
	if out.Success {
		t.Fatal("expected failure")
	}
	if next.calls != 0 {
		t.Error("chain must stop after caller cancellation")
	}
}

func TestGenerate_PerAttemptTimeoutAdvancesChain(t *testing.T) {
	reg := NewRegistry()
	slow := &mockBackend{name: "gigachat", available: true, sleep: time.Second}
	fast := &mockBackend{name: "deepseek", available: true, response: domgen.Response{Content: "ответ"}}
	reg.Register(slow)
	reg.Register(fast)
	r := NewRouter(reg, Config{
		DefaultBackend:   "gigachat",
		FallbackBackends: []string{"deepseek"},
		AttemptTimeout:   20 * time.Millisecond,
	}, zap.NewNop())

	out := r.Generate(context.Background(), mustRequest(t), "")
	if !out.Success {
		t.Fatalf("expected success via fallback, got %v", out.Err)
	}
	if out.BackendUsed != "deepseek" {
		t.Errorf("backend = %q, want deepseek", out.BackendUsed)
	}
}

func TestRegistry_ReplacePreservesOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockBackend{name: "a", available: true})
	reg.Register(&mockBackend{name: "b", available: true})
	reg.Register(&mockBackend{name: "a", available: false})

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("names = %v, want [a b]", names)
	}
	if avail := reg.Available(); len(avail) != 1 || avail[0] != "b" {
		t.Errorf("available = %v, want [b]", avail)
	}
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
