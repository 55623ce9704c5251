// backend/src/handlers/middleware.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/services"
	"github.com/username/backoffice/backend/src/session"
	"github.com/username/backoffice/backend/src/tenant"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// SessionCookieName carries the BFF token for browser clients.
const SessionCookieName = "session_token"

// ContextualLoggerMiddleware cria um logger com um requestID para cada requisição.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantMiddleware resolve a empresa pelo subdomínio ou pelo primeiro segmento do caminho.
func TenantMiddleware(resolver *tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := resolver.Resolve(r.Host, r.URL.Path)
			ctx := tenant.WithTenant(r.Context(), t)
			ctx = logger.ToContext(ctx, logger.FromContext(ctx).With(slog.String("tenant", t)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromRequest prefers the Authorization header and falls back to the session cookie.
func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// authenticate resolves the session of the request and returns the enriched context.
func authenticate(sessions *services.SessionService, r *http.Request) (context.Context, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, session.ErrNoSession
	}
	sess, err := sessions.Resolve(r.Context(), token)
	if err != nil {
		return nil, err
	}

	ctx := session.WithSession(r.Context(), sess)
	attrs := []any{slog.String("sessionID", sess.ID)}
	if sess.User.Empresa != "" {
		ctx = tenant.WithTenant(ctx, sess.User.Empresa)
		attrs = append(attrs, slog.String("tenant", sess.User.Empresa))
	}
	ctx = logger.ToContext(ctx, logger.FromContext(ctx).With(attrs...))
	return ctx, nil
}

// AuthMiddleware protege as rotas /api com a sessão do BFF e responde 401 em JSON.
func (h *SessionHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := authenticate(h.sessions, r)
		if err != nil {
			logger.FromContext(r.Context()).Debug("AuthMiddleware: no valid session", "path", r.URL.Path, "error", err)
			clearSessionCookie(w, r)
			sendJSONError(w, "Sessão expirada. Faça login novamente.", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PageGuard redireciona para /login quando não há sessão ativa.
func (h *SessionHandler) PageGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := authenticate(h.sessions, r)
		if err != nil {
			logger.FromContext(r.Context()).Debug("PageGuard: redirecting to login", "path", r.URL.Path, "error", err)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
