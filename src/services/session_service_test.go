package services

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/backoffice/backend/src/database"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/security"
	"github.com/username/backoffice/backend/src/security/validation"
	"github.com/username/backoffice/backend/src/session"
)

func newSessionService(t *testing.T) (*backend, *SessionService) {
	t.Helper()
	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "bff.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var svc *SessionService
	b, gw := newBackend(t,
		gateway.WithCredentials(SessionCredentials),
		gateway.WithUnauthorizedHandler(func(ctx context.Context) { svc.ForceLogout(ctx) }),
	)
	workspaces := NewWorkspaces(gw, NewLookupService(gw), WorkspaceOptions{TTL: time.Minute, Now: fixedNow})
	svc = NewSessionService(gw, session.NewStore(db, time.Hour), security.NewAuthService("0123456789abcdef0123456789abcdef", time.Hour), workspaces)
	return b, svc
}

func TestSessionService_LoginAndResolve(t *testing.T) {
	b, svc := newSessionService(t)
	b.on("/webhook/auth#login", ok(map[string]any{
		"user":        map[string]any{"id": 7, "name": "Ana", "email": "ana@example.com"},
		"token":       "remote-token",
		"tokenAlboom": "alboom-token",
	}))
	ctx := context.Background()

	sess, token, err := svc.Login(ctx, " Ana@Example.com ", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.ID("7"), sess.User.ID)
	assert.Equal(t, "ana@example.com", b.last("/webhook/auth#login").Body["email"])

	loaded, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, session.Tokens{Token: "remote-token", TokenAlboom: "alboom-token"}, loaded.Tokens)

	require.NoError(t, svc.Logout(ctx, sess.ID))
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSessionService_LoginValidation(t *testing.T) {
	b, svc := newSessionService(t)
	_, _, err := svc.Login(context.Background(), "", "secret")
	assert.ErrorIs(t, err, validation.ErrValidationFailed)
	assert.Zero(t, b.total())
}

func TestSessionService_LoginRejected(t *testing.T) {
	b, svc := newSessionService(t)
	b.on("/webhook/auth#login", func(map[string]any) (int, any) {
		return http.StatusUnauthorized, map[string]string{"message": "Credenciais inválidas"}
	})

	_, _, err := svc.Login(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.Equal(t, "Credenciais inválidas", gateway.BusinessMessage(err, "Erro ao entrar."))
}

func TestSessionService_LoginWithoutToken(t *testing.T) {
	b, svc := newSessionService(t)
	b.on("/webhook/auth#login", ok(map[string]any{"user": map[string]any{"name": "Ana"}}))

	_, _, err := svc.Login(context.Background(), "ana@example.com", "secret")
	assert.ErrorIs(t, err, ErrLoginRejected)
}

func TestSessionService_ForcedLogoutOnRemote401(t *testing.T) {
	b, svc := newSessionService(t)
	b.on("/webhook/auth#login", ok(map[string]any{"user": map[string]any{"id": 1}, "token": "t", "tokenAlboom": "a"}))
	b.on(pathTransactions, func(map[string]any) (int, any) {
		return http.StatusUnauthorized, map[string]string{"message": "expired"}
	})

	sess, token, err := svc.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	ctx := session.WithSession(context.Background(), sess)

	ws := svc.Workspace(sess.ID)
	screen, err := ws.Screen(ScreenPayables)
	require.NoError(t, err)

	err = screen.Refresh(ctx)
	require.ErrorIs(t, err, gateway.ErrUnauthorized)

	_, err = svc.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.NotSame(t, ws, svc.Workspace(sess.ID), "workspace is dropped with the session")
}
