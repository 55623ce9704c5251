// Package session keeps the logged-in user and the remote tokens. Each session
// is persisted as the two storage keys "user" and "authTokens"; a session is
// only valid while both are present.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/models"
)

const (
	KeyUser       = "user"
	KeyAuthTokens = "authTokens"
)

var ErrNoSession = errors.New("no active session")

type User struct {
	ID      models.ID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Role    string    `json:"role,omitempty"`
	Empresa string    `json:"empresa,omitempty"`
}

type Tokens struct {
	Token       string `json:"token"`
	TokenAlboom string `json:"tokenAlboom"`
}

type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	Tokens    Tokens    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists sessions in sqlite.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewStore(db *sql.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// Create persists a new session. Both keys are written in one transaction.
func (s *Store) Create(ctx context.Context, user User, tokens Tokens) (*Session, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	tokensJSON, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tokens: %w", err)
	}

	sess := &Session{ID: uuid.NewString(), User: user, Tokens: tokens, UpdatedAt: s.now()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO session_storage (session_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare session insert: %w", err)
	}
	defer stmt.Close()

	ts := sess.UpdatedAt.Unix()
	if _, err := stmt.ExecContext(ctx, sess.ID, KeyUser, string(userJSON), ts); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}
	if _, err := stmt.ExecContext(ctx, sess.ID, KeyAuthTokens, string(tokensJSON), ts); err != nil {
		return nil, fmt.Errorf("failed to store tokens: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}

	logger.FromContext(ctx).Info("Session created", "sessionID", sess.ID, "userID", user.ID)
	return sess, nil
}

// Load returns the session when both keys are present and not expired.
// A half-written or expired session is removed.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}
	rows, err := s.db.QueryContext(ctx, "SELECT key, value, updated_at FROM session_storage WHERE session_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	var updated int64
	for rows.Next() {
		var key, value string
		var ts int64
		if err := rows.Scan(&key, &value, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		values[key] = value
		if ts > updated {
			updated = ts
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	rows.Close()

	userJSON, hasUser := values[KeyUser]
	tokensJSON, hasTokens := values[KeyAuthTokens]
	if !hasUser || !hasTokens {
		if hasUser || hasTokens {
			logger.FromContext(ctx).Warn("Discarding incomplete session", "sessionID", id, "hasUser", hasUser, "hasTokens", hasTokens)
			_ = s.Destroy(ctx, id)
		}
		return nil, ErrNoSession
	}

	updatedAt := time.Unix(updated, 0)
	if s.ttl > 0 && s.now().Sub(updatedAt) > s.ttl {
		_ = s.Destroy(ctx, id)
		return nil, ErrNoSession
	}

	sess := &Session{ID: id, UpdatedAt: updatedAt}
	if err := json.Unmarshal([]byte(userJSON), &sess.User); err != nil {
		_ = s.Destroy(ctx, id)
		return nil, ErrNoSession
	}
	if err := json.Unmarshal([]byte(tokensJSON), &sess.Tokens); err != nil {
		_ = s.Destroy(ctx, id)
		return nil, ErrNoSession
	}
	return sess, nil
}

// Destroy removes both keys. Destroying a missing session is not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_storage WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	logger.FromContext(ctx).Info("Session destroyed", "sessionID", id)
	return nil
}

// PurgeExpired removes every session older than the ttl.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := s.db.ExecContext(ctx, "DELETE FROM session_storage WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}
