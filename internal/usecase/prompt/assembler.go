// Package prompt assembles the ordered message sequence sent to generation
// backends: system prompt first, optional retrieved context, windowed dialogue
// history, and the live user query last.
package prompt

import (
	"fmt"
	"strings"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// systemPrompt is the fixed assistant instruction. User-facing text, kept in
// Russian verbatim.
const systemPrompt = `Ты - помощник поддержки разработчиков. Твоя задача - помогать разработчикам решать технические вопросы, связанные с:

1. CI/CD процессами и пайплайнами
2. Разработкой и деплоем приложений
3. Работой с базами данных и API
4. Отладкой и решением проблем
5. Лучшими практиками разработки

Используй предоставленный контекст для формирования точных и полезных ответов. Если в контексте нет информации для ответа, честно скажи об этом и предложи обратиться к команде поддержки.

Отвечай на русском языке, если вопрос задан на русском, и на английском, если вопрос задан на английском.

Форматируй ответы с использованием Markdown для лучшей читаемости кода и команд.`

const contextMessageFormat = "Контекст для ответа:\n\n%s\n\nИспользуй эту информацию для формирования ответа."

// Assembler builds generation message sequences with a fixed layout.
type Assembler struct{}

// New creates a prompt assembler.
func New() *Assembler { return &Assembler{} }

// Build composes the messages for one request. The retrieved-context message
// is omitted entirely when no results survived filtering, so the model never
// sees an empty context block.
func (a *Assembler) Build(query string, contextResults []retrieval.Result, history []chat.Turn) []chat.Message {
	messages := make([]chat.Message, 0, len(history)+3)
	messages = append(messages, chat.System(systemPrompt))

	if len(contextResults) > 0 {
		rendered := fmt.Sprintf(contextMessageFormat, renderContext(contextResults))
		messages = append(messages, chat.System(rendered))
	}

	for _, turn := range history {
		messages = append(messages, turn.Message())
	}

	messages = append(messages, chat.User(query))
	return messages
}

// renderContext formats results as numbered documents with their combined
// similarity to two decimals and a source line when metadata carries one.
func renderContext(results []retrieval.Result) string {
	parts := make([]string, 0, len(results)*3)
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("--- Документ %d (сходство: %.2f) ---", i+1, r.CombinedScore()))
		if src := renderSource(r.Metadata()); src != "" {
			parts = append(parts, src)
		}
		parts = append(parts, r.Text()+"\n")
	}
	return strings.Join(parts, "\n")
}

func renderSource(meta retrieval.Metadata) string {
	var b strings.Builder
	if meta.Title != "" {
		b.WriteString("Источник: " + meta.Title)
	}
	if meta.SourceURL != "" {
		b.WriteString(" (" + meta.SourceURL + ")")
	}
	return strings.TrimSpace(b.String())
}
