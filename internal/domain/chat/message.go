package chat

import (
	"fmt"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
)

// Message is an immutable role-tagged message sent to a generation backend.
type Message struct {
	role    Role
	content string
}

// NewMessage creates a message, validating the role.
func NewMessage(role Role, content string) (Message, error) {
	if !role.IsValid() {
		return Message{}, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	return Message{role: role, content: content}, nil
}

// System creates a system message.
func System(content string) Message { return Message{role: RoleSystem, content: content} }

// User creates a user message.
func User(content string) Message { return Message{role: RoleUser, content: content} }

// Assistant creates an assistant message.
func Assistant(content string) Message { return Message{role: RoleAssistant, content: content} }

// Role returns the message author kind.
func (m Message) Role() Role { return m.role }

// Content returns the message text.
func (m Message) Content() string { return m.content }
