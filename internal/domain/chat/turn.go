package chat

import (
	"fmt"
	"time"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
)

// Turn is one persisted dialogue entry. History is append-only; the core
// only reads and windows a sequence supplied by the caller.
type Turn struct {
	role      Role
	content   string
	createdAt time.Time
}

// NewTurn creates a dialogue turn. Only user and assistant roles are storable.
func NewTurn(role Role, content string, createdAt time.Time) (Turn, error) {
	if !role.IsDialogue() {
		return Turn{}, fmt.Errorf("%w: %q is not a dialogue role", domain.ErrInvalidRole, role)
	}
	return Turn{role: role, content: content, createdAt: createdAt}, nil
}

// ReconstructTurn restores a turn from storage without dialogue-role validation.
// Stray roles survive deserialization and are filtered by windowing instead.
func ReconstructTurn(role Role, content string, createdAt time.Time) Turn {
	return Turn{role: role, content: content, createdAt: createdAt}
}

// Role returns the turn author kind.
func (t Turn) Role() Role { return t.role }

// Content returns the turn text.
func (t Turn) Content() string { return t.content }

// CreatedAt returns the turn timestamp.
func (t Turn) CreatedAt() time.Time { return t.createdAt }

// Message converts the turn into a backend message with the same role and content.
func (t Turn) Message() Message { return Message{role: t.role, content: t.content} }
