package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any 401/403 answer from an authenticated backend.
	ErrUnauthorized = errors.New("remote backend rejected the credentials")
	// ErrDecode is returned when a 2xx body is not the JSON the caller expects.
	ErrDecode = errors.New("failed to decode remote response")
)

// Business conflict codes sent by the automation backend.
const (
	CodeUserExist     = "user_exist"
	CodeUserLinkExist = "user_link_exist"
)

// HTTPError is a non-2xx answer. Data holds the raw body when it was valid JSON.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Data    json.RawMessage
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote error %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

func newHTTPError(status int, body []byte) *HTTPError {
	herr := &HTTPError{Status: status, Message: fmt.Sprintf("HTTP error! status: %d", status)}

	var parsed struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if len(body) > 0 && json.Valid(body) {
		herr.Data = json.RawMessage(body)
		if err := json.Unmarshal(body, &parsed); err == nil {
			if parsed.Message != "" {
				herr.Message = parsed.Message
			}
			herr.Code = parsed.Code
		}
	}
	return herr
}

var businessMessages = map[string]string{
	CodeUserExist:     "Usuário já cadastrado com este telefone.",
	CodeUserLinkExist: "Já existe um vínculo de aprovação para este solicitante.",
}

// BusinessMessage turns an error into the text shown to the user: a specific
// message for known conflict codes, the backend message otherwise, and the
// fallback when nothing better is available.
func BusinessMessage(err error, fallback string) string {
	var herr *HTTPError
	if !errors.As(err, &herr) {
		return fallback
	}
	if msg, ok := businessMessages[herr.Code]; ok {
		return msg
	}
	if herr.Data != nil && herr.Message != "" {
		return herr.Message
	}
	return fallback
}
