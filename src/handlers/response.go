package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/backoffice/backend/src/dispatch"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/security"
	"github.com/username/backoffice/backend/src/security/validation"
	"github.com/username/backoffice/backend/src/services"
	"github.com/username/backoffice/backend/src/session"
)

const maxBodyBytes = 1 << 20

func sendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Failed to encode JSON response", "error", err)
	}
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		logger.FromContext(r.Context()).Debug("Invalid request body", "path", r.URL.Path, "error", err)
		sendJSONError(w, "Corpo da requisição inválido", http.StatusBadRequest)
		return false
	}
	return true
}

// actionResult is the body of every mutating screen call.
type actionResult struct {
	Notifications []dispatch.Notification `json:"notifications,omitempty"`
	View          *services.ScreenView    `json:"view,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

// errorStatus maps service errors onto HTTP status codes and user-facing messages.
func errorStatus(err error) (int, string) {
	var herr *gateway.HTTPError
	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		return http.StatusBadRequest, validation.Message(err)
	case errors.Is(err, services.ErrLoginRejected):
		return http.StatusUnauthorized, "E-mail ou senha inválidos"
	case errors.Is(err, gateway.ErrUnauthorized),
		errors.Is(err, session.ErrNoSession),
		errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized, "Sessão expirada. Faça login novamente."
	case errors.Is(err, services.ErrUnknownScreen):
		return http.StatusNotFound, "Tela não encontrada"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Item não encontrado na página atual"
	case errors.Is(err, services.ErrForbidden), errors.Is(err, dispatch.ErrNotAllowed):
		return http.StatusForbidden, "Operação não permitida"
	case errors.Is(err, services.ErrSuperseded):
		return http.StatusConflict, "Busca substituída por uma mais recente"
	case errors.Is(err, dispatch.ErrPrecondition):
		return http.StatusUnprocessableEntity, "Os itens selecionados não permitem esta ação"
	case errors.Is(err, dispatch.ErrNoTargets), errors.Is(err, dispatch.ErrUnknownItems):
		return http.StatusBadRequest, "Seleção inválida"
	case errors.As(err, &herr):
		if herr.Code == gateway.CodeUserExist || herr.Code == gateway.CodeUserLinkExist {
			return http.StatusConflict, gateway.BusinessMessage(err, "Registro já existe")
		}
		return http.StatusBadGateway, gateway.BusinessMessage(err, "Falha ao comunicar com o servidor")
	default:
		return http.StatusBadGateway, "Falha ao comunicar com o servidor"
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
	}
	sendJSONError(w, message, status)
}
