package chat

import (
	"errors"
	"time"
)

// Session identifies one conversation thread. Turns are stored separately
// and keyed by the session ID.
type Session struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
}

// NewSession creates a session stamped with the given time.
func NewSession(id string, now time.Time) (Session, error) {
	if id == "" {
		return Session{}, errors.New("session id is required")
	}
	return Session{id: id, createdAt: now, updatedAt: now}, nil
}

// ReconstructSession restores a session from storage without validation.
func ReconstructSession(id string, createdAt, updatedAt time.Time) Session {
	return Session{id: id, createdAt: createdAt, updatedAt: updatedAt}
}

// ID returns the session identifier.
func (s Session) ID() string { return s.id }

// CreatedAt returns the creation timestamp.
func (s Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last activity timestamp.
func (s Session) UpdatedAt() time.Time { return s.updatedAt }
