// Package generation holds the request/response contract between the
// generation router and its backends.
package generation

import (
	"errors"
	"time"

	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
)

// Request is a validated generation request: the full ordered message
// sequence plus sampling parameters.
type Request struct {
	messages    []chat.Message
	temperature float32
	maxTokens   int
}

// NewRequest validates and creates a generation request.
func NewRequest(messages []chat.Message, temperature float32, maxTokens int) (Request, error) {
	if len(messages) == 0 {
		return Request{}, errors.New("at least one message is required")
	}
	if temperature < 0 || temperature > 2 {
		return Request{}, errors.New("temperature must be between 0 and 2")
	}
	if maxTokens < 0 {
		return Request{}, errors.New("max_tokens must not be negative")
	}
	return Request{messages: messages, temperature: temperature, maxTokens: maxTokens}, nil
}

// Messages returns the ordered message sequence.
func (r Request) Messages() []chat.Message { return r.messages }

// Temperature returns the sampling temperature.
func (r Request) Temperature() float32 { return r.temperature }

// MaxTokens returns the completion token cap.
func (r Request) MaxTokens() int { return r.maxTokens }

// Response is a single successful backend completion.
type Response struct {
	Content    string
	TokensUsed int
	Elapsed    time.Duration
}

// Attempt records one backend try in the fallback chain.
type Attempt struct {
	Backend string
	Elapsed time.Duration
	Err     error // nil on the successful attempt
}
