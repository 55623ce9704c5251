package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/services"
)

// LookupHandler serves the reference lists used by the filters and forms.
type LookupHandler struct {
	lookups services.LookupService
}

func NewLookupHandler(lookups services.LookupService) *LookupHandler {
	return &LookupHandler{lookups: lookups}
}

func (h *LookupHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var (
		out any
		err error
	)
	switch chi.URLParam(r, "kind") {
	case "contacts":
		out, err = h.lookups.Contacts(r.Context(), r.URL.Query().Get("q"))
	case "freelancers":
		out, err = h.lookups.Freelancers(r.Context())
	case "payment-types":
		out, err = h.lookups.PaymentTypes(r.Context())
	case "banks":
		out, err = h.lookups.BankAccounts(r.Context())
	default:
		sendJSONError(w, "Lista desconhecida", http.StatusNotFound)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, out)
}

func (h *LookupHandler) HandleBankDirectory(w http.ResponseWriter, r *http.Request) {
	banks, err := h.lookups.BankDirectory(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, banks)
}

// AdminHandler covers the WhatsApp users and approval links registries.
type AdminHandler struct {
	whatsapp services.WhatsAppUserService
	links    services.ApprovalLinkService
}

func NewAdminHandler(whatsapp services.WhatsAppUserService, links services.ApprovalLinkService) *AdminHandler {
	return &AdminHandler{whatsapp: whatsapp, links: links}
}

func (h *AdminHandler) ListWhatsAppUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.whatsapp.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) CreateWhatsAppUser(w http.ResponseWriter, r *http.Request) {
	var u models.WhatsAppUser
	if !decodeJSON(w, r, &u) {
		return
	}
	created, err := h.whatsapp.Create(r.Context(), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) UpdateWhatsAppUser(w http.ResponseWriter, r *http.Request) {
	var u models.WhatsAppUser
	if !decodeJSON(w, r, &u) {
		return
	}
	updated, err := h.whatsapp.Update(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) DeleteWhatsAppUser(w http.ResponseWriter, r *http.Request) {
	if err := h.whatsapp.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListApprovalLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, links)
}

func (h *AdminHandler) CreateApprovalLink(w http.ResponseWriter, r *http.Request) {
	var l models.ApprovalLink
	if !decodeJSON(w, r, &l) {
		return
	}
	created, err := h.links.Create(r.Context(), l)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) DeleteApprovalLink(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
