// Package chat holds the dialogue value types shared by prompt assembly,
// history windowing, and the generation backends.
package chat

// Role tags a message with its author kind.
type Role string

const (
	// RoleSystem is an instruction message to the model.
	RoleSystem Role = "system"
	// RoleUser is an end-user message.
	RoleUser Role = "user"
	// RoleAssistant is a model-generated message.
	RoleAssistant Role = "assistant"
)

// IsValid reports whether the role is one of system/user/assistant.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// IsDialogue reports whether the role belongs in conversation history
// (stray system turns are dropped by windowing).
func (r Role) IsDialogue() bool {
	return r == RoleUser || r == RoleAssistant
}
