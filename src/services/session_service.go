package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/security"
	"github.com/username/backoffice/backend/src/security/validation"
	"github.com/username/backoffice/backend/src/session"
)

var ErrLoginRejected = errors.New("login rejected by the remote backend")

// SessionService ties the remote login to the local session store and the BFF token.
type SessionService struct {
	gw         *gateway.Client
	store      *session.Store
	auth       *security.AuthService
	workspaces *Workspaces
}

func NewSessionService(gw *gateway.Client, store *session.Store, auth *security.AuthService, workspaces *Workspaces) *SessionService {
	return &SessionService{gw: gw, store: store, auth: auth, workspaces: workspaces}
}

// Login authenticates remotely and opens a session. It returns the BFF token.
func (s *SessionService) Login(ctx context.Context, email, password string) (*session.Session, string, error) {
	if err := validation.ValidateStringNotEmpty(email, "e-mail"); err != nil {
		return nil, "", err
	}
	if err := validation.ValidateStringNotEmpty(password, "senha"); err != nil {
		return nil, "", err
	}
	email = strings.TrimSpace(strings.ToLower(email))

	res, err := s.gw.Login(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	if res.Token == "" {
		return nil, "", ErrLoginRejected
	}

	var user session.User
	if len(res.User) > 0 {
		if err := json.Unmarshal(res.User, &user); err != nil {
			logger.FromContext(ctx).Warn("Could not decode remote user profile", "error", err)
		}
	}
	if user.Email == "" {
		user.Email = email
	}

	sess, err := s.store.Create(ctx, user, session.Tokens{Token: res.Token, TokenAlboom: res.TokenAlboom})
	if err != nil {
		return nil, "", err
	}
	token, err := s.auth.GenerateToken(sess.ID)
	if err != nil {
		_ = s.store.Destroy(ctx, sess.ID)
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return sess, token, nil
}

// Resolve validates a BFF token and loads its session.
func (s *SessionService) Resolve(ctx context.Context, token string) (*session.Session, error) {
	id, err := s.auth.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return s.store.Load(ctx, id)
}

func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	s.workspaces.Drop(sessionID)
	return s.store.Destroy(ctx, sessionID)
}

// ForceLogout ends the session found in ctx. It is the gateway's 401/403 hook.
func (s *SessionService) ForceLogout(ctx context.Context) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return
	}
	logger.FromContext(ctx).Warn("Remote backend rejected the session, logging out", "sessionID", sess.ID)
	if err := s.Logout(ctx, sess.ID); err != nil {
		logger.FromContext(ctx).Error("Failed to destroy rejected session", "sessionID", sess.ID, "error", err)
	}
}

// Workspace returns the screen state of the session.
func (s *SessionService) Workspace(sessionID string) *Workspace {
	return s.workspaces.Get(sessionID)
}

// PurgeLoop removes expired sessions every interval until ctx is done.
func (s *SessionService) PurgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.PurgeExpired(ctx)
			if err != nil {
				logger.L.Error("Failed to purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.L.Info("Purged expired sessions", "rows", n)
			}
		}
	}
}

// SessionCredentials feeds the gateway with the tokens of the session in ctx.
func SessionCredentials(ctx context.Context) gateway.Credentials {
	if sess, ok := session.FromContext(ctx); ok {
		return gateway.Credentials{Token: sess.Tokens.Token, TokenAlboom: sess.Tokens.TokenAlboom}
	}
	return gateway.Credentials{}
}
