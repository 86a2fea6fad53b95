package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	"github.com/helpdesk-cloud/ragdesk/internal/domain/chat"
)

var sessionKeyPrefix = domain.KeyPrefix + "session:"

// store is the consumer interface for conversation history (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
}

// turnDTO is the stored representation of a dialogue turn.
type turnDTO struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Repo persists sessions and their dialogue turns.
// Turns live in a list per session, session metadata in a hash.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates a history repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// Append adds turns to a session's history and trims it to keep at most
// maxTurns entries. Oldest turns are evicted first.
func (r *Repo) Append(ctx context.Context, sessionID string, turns []chat.Turn, maxTurns int) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]string, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(turnDTO{
			Role:      string(t.Role()),
			Content:   t.Content(),
			CreatedAt: t.CreatedAt().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("marshal turn: %w", err)
		}
		values = append(values, string(data))
	}

	key := turnsKey(sessionID)
	if err := r.store.RPush(ctx, key, values...); err != nil {
		return fmt.Errorf("append turns %s: %w", sessionID, err)
	}

	if maxTurns > 0 {
		if err := r.store.LTrim(ctx, key, int64(-maxTurns), -1); err != nil {
			return fmt.Errorf("trim turns %s: %w", sessionID, err)
		}
	}
	return nil
}

// History returns up to limit most recent turns in chronological order.
// limit <= 0 returns the full stored history.
func (r *Repo) History(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	items, err := r.store.LRange(ctx, turnsKey(sessionID), start, -1)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", sessionID, err)
	}

	turns := make([]chat.Turn, 0, len(items))
	for _, item := range items {
		var dto turnDTO
		if err := json.Unmarshal([]byte(item), &dto); err != nil {
			r.logger.Warn("Skipping malformed history entry",
				zap.String("session_id", sessionID), zap.Error(err))
			continue
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, dto.CreatedAt)
		turns = append(turns, chat.ReconstructTurn(chat.Role(dto.Role), dto.Content, createdAt))
	}

	return turns, nil
}

// CreateSession stores session metadata.
func (r *Repo) CreateSession(ctx context.Context, s chat.Session) error {
	fields := map[string]string{
		"created_at": s.CreatedAt().UTC().Format(time.RFC3339Nano),
		"updated_at": s.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, metaKey(s.ID()), fields); err != nil {
		return fmt.Errorf("create session %s: %w", s.ID(), err)
	}
	return nil
}

// GetSession loads session metadata.
func (r *Repo) GetSession(ctx context.Context, id string) (chat.Session, error) {
	m, err := r.store.HGetAll(ctx, metaKey(id))
	if err != nil {
		return chat.Session{}, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(m) == 0 {
		return chat.Session{}, domain.ErrSessionNotFound
	}
	return parseSession(id, m), nil
}

// TouchSession bumps the session's updated_at timestamp.
func (r *Repo) TouchSession(ctx context.Context, id string, now time.Time) error {
	fields := map[string]string{
		"updated_at": now.UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, metaKey(id), fields); err != nil {
		return fmt.Errorf("touch session %s: %w", id, err)
	}
	return nil
}

// ListSessions returns all known sessions.
func (r *Repo) ListSessions(ctx context.Context) ([]chat.Session, error) {
	keys, err := r.store.Scan(ctx, sessionKeyPrefix+"*:meta")
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	metas, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	sessions := make([]chat.Session, 0, len(keys))
	for i, key := range keys {
		if len(metas[i]) == 0 {
			continue
		}
		sessions = append(sessions, parseSession(sessionIDFromMetaKey(key), metas[i]))
	}
	return sessions, nil
}

// DeleteSession removes a session and its turns.
func (r *Repo) DeleteSession(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, turnsKey(id)); err != nil {
		return fmt.Errorf("delete turns %s: %w", id, err)
	}
	if err := r.store.Del(ctx, metaKey(id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func parseSession(id string, m map[string]string) chat.Session {
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"])
	return chat.ReconstructSession(id, createdAt, updatedAt)
}

func turnsKey(sessionID string) string {
	return sessionKeyPrefix + sessionID + ":turns"
}

func metaKey(sessionID string) string {
	return sessionKeyPrefix + sessionID + ":meta"
}

func sessionIDFromMetaKey(key string) string {
	id := strings.TrimPrefix(key, sessionKeyPrefix)
	return strings.TrimSuffix(id, ":meta")
}
