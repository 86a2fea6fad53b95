package domain

import "errors"

var (
	// ErrSessionNotFound signals a missing chat session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRole signals a message role outside system/user/assistant.
	ErrInvalidRole = errors.New("invalid message role")
	// ErrEmptyQuery signals an empty user query.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrBackendUnavailable signals a generation backend without credentials.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNoBackendsConfigured signals an empty generation backend registry.
	ErrNoBackendsConfigured = errors.New("no generation backends configured")
	// ErrAllBackendsExhausted signals that every backend in the fallback chain failed.
	ErrAllBackendsExhausted = errors.New("all generation backends exhausted")
)
