package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/username/backoffice/backend/src/dispatch"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/services"
	"github.com/username/backoffice/backend/src/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ScreenHandler exposes the list screens of the caller's workspace.
type ScreenHandler struct {
	sessions *services.SessionService
	now      func() time.Time
}

func NewScreenHandler(sessions *services.SessionService) *ScreenHandler {
	return &ScreenHandler{sessions: sessions, now: time.Now}
}

func (h *ScreenHandler) workspace(r *http.Request) (*services.Workspace, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return nil, false
	}
	return h.sessions.Workspace(sess.ID), true
}

// Routes registers the standard screen endpoints for name on r.
func (h *ScreenHandler) Routes(r chi.Router, name string) {
	r.Get("/", h.withScreen(name, h.handleView))
	r.Post("/filter", h.withScreen(name, h.handleFilter))
	r.Post("/refresh", h.withScreen(name, h.handleRefresh))
	r.Post("/page", h.withScreen(name, h.handlePage))
	r.Post("/sort", h.withScreen(name, h.handleSort))
	r.Post("/search", h.withScreen(name, h.handleSearch))
	r.Post("/selection", h.withScreen(name, h.handleSelection))
	r.Post("/actions/{kind}", h.withScreen(name, h.handleAction))
	r.Get("/export", h.withScreen(name, h.handleExport))
}

type screenFunc func(w http.ResponseWriter, r *http.Request, s services.Screen)

func (h *ScreenHandler) withScreen(name string, fn screenFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := h.workspace(r)
		if !ok {
			sendJSONError(w, "Sessão não encontrada", http.StatusUnauthorized)
			return
		}
		s, err := ws.Screen(name)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		fn(w, r, s)
	}
}

// respond writes the screen view after a state change. A failed load still
// returns the (cleared) view alongside the error.
func respond(w http.ResponseWriter, r *http.Request, s services.Screen, notes []dispatch.Notification, err error) {
	view := s.View(r.Context())
	if err != nil {
		status, message := errorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("Screen operation failed", "screen", s.Name(), "error", err)
		}
		sendJSON(w, status, actionResult{Notifications: notes, View: &view, Error: message})
		return
	}
	sendJSON(w, http.StatusOK, actionResult{Notifications: notes, View: &view})
}

func (h *ScreenHandler) handleView(w http.ResponseWriter, r *http.Request, s services.Screen) {
	sendJSON(w, http.StatusOK, s.View(r.Context()))
}

func (h *ScreenHandler) handleFilter(w http.ResponseWriter, r *http.Request, s services.Screen) {
	criteria := s.View(r.Context()).Criteria
	if !decodeJSON(w, r, &criteria) {
		return
	}
	respond(w, r, s, nil, s.Filter(r.Context(), criteria))
}

func (h *ScreenHandler) handleRefresh(w http.ResponseWriter, r *http.Request, s services.Screen) {
	respond(w, r, s, nil, s.Refresh(r.Context()))
}

func (h *ScreenHandler) handlePage(w http.ResponseWriter, r *http.Request, s services.Screen) {
	var body struct {
		Page     int `json:"page"`
		PageSize int `json:"page_size"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	var err error
	if body.Page > 0 || body.PageSize > 0 {
		err = s.Paginate(r.Context(), body.Page, body.PageSize)
	}
	respond(w, r, s, nil, err)
}

func (h *ScreenHandler) handleSort(w http.ResponseWriter, r *http.Request, s services.Screen) {
	var body struct {
		Field string `json:"field"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Field == "" {
		sendJSONError(w, "Campo de ordenação obrigatório", http.StatusBadRequest)
		return
	}
	respond(w, r, s, nil, s.ToggleSort(r.Context(), body.Field))
}

func (h *ScreenHandler) handleSearch(w http.ResponseWriter, r *http.Request, s services.Screen) {
	var body struct {
		Term string `json:"term"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	s.Search(body.Term)
	respond(w, r, s, nil, nil)
}

func (h *ScreenHandler) handleSelection(w http.ResponseWriter, r *http.Request, s services.Screen) {
	var op services.SelectionOp
	if !decodeJSON(w, r, &op) {
		return
	}
	if err := s.Select(op); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respond(w, r, s, nil, nil)
}

func (h *ScreenHandler) handleAction(w http.ResponseWriter, r *http.Request, s services.Screen) {
	kind, ok := dispatch.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		sendJSONError(w, "Ação desconhecida", http.StatusNotFound)
		return
	}
	var body struct {
		IDs   []string       `json:"ids"`
		Extra map[string]any `json:"extra"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.IDs == nil {
		body.IDs = s.View(r.Context()).Selected
	}
	notes, err := s.Act(r.Context(), kind, body.IDs, body.Extra)
	respond(w, r, s, notes, err)
}

func (h *ScreenHandler) handleExport(w http.ResponseWriter, r *http.Request, s services.Screen) {
	var buf bytes.Buffer
	if err := s.Export(&buf); err != nil {
		logger.FromContext(r.Context()).Error("Failed to export screen", "screen", s.Name(), "error", err)
		sendJSONError(w, "Falha ao gerar a planilha", http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", s.Name(), h.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// CreatePaymentRequest serves the creation form of the payment requests screen.
func (h *ScreenHandler) CreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	h.savePaymentRequest(w, r, "")
}

// UpdatePaymentRequest edits a request that is still on the current page and editable.
func (h *ScreenHandler) UpdatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	h.savePaymentRequest(w, r, chi.URLParam(r, "id"))
}

func (h *ScreenHandler) savePaymentRequest(w http.ResponseWriter, r *http.Request, id string) {
	ws, ok := h.workspace(r)
	if !ok {
		sendJSONError(w, "Sessão não encontrada", http.StatusUnauthorized)
		return
	}
	var in services.PaymentRequestInput
	if !decodeJSON(w, r, &in) {
		return
	}

	var (
		notes []dispatch.Notification
		err   error
	)
	if id == "" {
		notes, err = ws.PaymentRequests().Create(r.Context(), in)
	} else {
		notes, err = ws.PaymentRequests().Update(r.Context(), id, in)
	}

	s, serr := ws.Screen(services.ScreenPaymentRequests)
	if serr != nil {
		writeServiceError(w, r, serr)
		return
	}
	if err != nil && len(notes) == 0 {
		_, message := errorStatus(err)
		notes = []dispatch.Notification{{Level: dispatch.LevelError, Message: message}}
	}
	respond(w, r, s, notes, err)
}

// SearchCustomers is the debounced customer autocomplete of the receivables filter.
func (h *ScreenHandler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		sendJSONError(w, "Sessão não encontrada", http.StatusUnauthorized)
		return
	}
	contacts, err := ws.Customers.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, contacts)
}
