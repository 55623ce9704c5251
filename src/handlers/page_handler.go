package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/services"
	"github.com/username/backoffice/backend/src/session"
)

// Páginas e as telas que compõem cada uma.
var pageScreens = map[string][]string{
	"accounts-payable":    {services.ScreenPayables, services.ScreenPaymentRequests},
	"accounts-receivable": {services.ScreenReceivables},
	"appointments":        {services.ScreenAppointments, services.ScreenProcessedAppointments},
}

type pageResponse struct {
	Page    string                `json:"page"`
	User    *session.User         `json:"user,omitempty"`
	Screens []services.ScreenView `json:"screens,omitempty"`
}

// PageHandler serves the page bootstraps: the user and the views of every screen on the page.
type PageHandler struct {
	sessions *services.SessionService
}

func NewPageHandler(sessions *services.SessionService) *PageHandler {
	return &PageHandler{sessions: sessions}
}

// Login is public. An already authenticated caller is sent to the home page.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(h.sessions, r); err == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	sendJSON(w, http.StatusOK, pageResponse{Page: "login"})
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/accounts-payable", http.StatusFound)
}

// Page loads every screen of a guarded page and returns their views. It runs
// behind PageGuard. A rejected session sends the caller back to /login.
func (h *PageHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		ws := h.sessions.Workspace(sess.ID)
		resp := pageResponse{Page: name, User: &sess.User}
		for _, screenName := range pageScreens[name] {
			s, err := ws.Screen(screenName)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			if err := s.Refresh(r.Context()); errors.Is(err, gateway.ErrUnauthorized) {
				clearSessionCookie(w, r)
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			resp.Screens = append(resp.Screens, s.View(r.Context()))
		}
		sendJSON(w, http.StatusOK, resp)
	}
}

// NotFound is public and answers JSON for both API and page paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		sendJSONError(w, "Rota não encontrada", http.StatusNotFound)
		return
	}
	sendJSON(w, http.StatusNotFound, pageResponse{Page: "not-found"})
}
