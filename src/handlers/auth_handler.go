package handlers

import (
	"net/http"
	"time"

	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/services"
	"github.com/username/backoffice/backend/src/session"
)

// SessionHandler serves login, logout and the current user, and guards the other routes.
type SessionHandler struct {
	sessions *services.SessionService
	ttl      time.Duration
}

func NewSessionHandler(sessions *services.SessionService, ttl time.Duration) *SessionHandler {
	return &SessionHandler{sessions: sessions, ttl: ttl}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

func (h *SessionHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &credentials) {
		return
	}

	sess, token, err := h.sessions.Login(r.Context(), credentials.Email, credentials.Password)
	if err != nil {
		logger.FromContext(r.Context()).Warn("Login failed", "email", credentials.Email, "error", err)
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.ttl.Seconds()),
	})
	logger.FromContext(r.Context()).Info("User logged in", "sessionID", sess.ID, "userID", sess.User.ID)
	sendJSON(w, http.StatusOK, loginResponse{Token: token, User: sess.User})
}

func (h *SessionHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		sendJSONError(w, "Sessão não encontrada", http.StatusUnauthorized)
		return
	}
	if err := h.sessions.Logout(r.Context(), sess.ID); err != nil {
		logger.FromContext(r.Context()).Error("Failed to destroy session on logout", "error", err)
		sendJSONError(w, "Falha ao encerrar a sessão", http.StatusInternalServerError)
		return
	}
	clearSessionCookie(w, r)
	sendJSON(w, http.StatusOK, map[string]string{"message": "Sessão encerrada"})
}

func (h *SessionHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		sendJSONError(w, "Sessão não encontrada", http.StatusUnauthorized)
		return
	}
	sendJSON(w, http.StatusOK, sess.User)
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
