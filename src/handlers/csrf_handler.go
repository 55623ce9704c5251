package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/username/backoffice/backend/src/logger"
)

const (
	csrfCookieName = "_csrf"
	csrfHeaderName = "X-CSRF-Token"
)

// CSRF emite e valida tokens double-submit assinados com a chave CSRF_AUTH_KEY.
type CSRF struct {
	key []byte
}

func NewCSRF(key []byte) *CSRF {
	return &CSRF{key: key}
}

func (c *CSRF) GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := c.generateToken()
	if err != nil {
		logger.FromContext(r.Context()).Error("Error generating random bytes for CSRF token", "error", err)
		sendJSONError(w, "Falha ao gerar token CSRF", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		MaxAge:   3600,
	})

	w.Header().Set(csrfHeaderName, token)
	sendJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (c *CSRF) generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := base64.RawURLEncoding.EncodeToString(b)
	return nonce + "." + c.sign(nonce), nil
}

func (c *CSRF) sign(nonce string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (c *CSRF) valid(token string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(c.sign(nonce)))
}

// Middleware só valida pedidos que alteram estado e que chegam autenticados por cookie.
// Clientes com Authorization: Bearer não estão expostos a CSRF.
func (c *CSRF) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get(csrfHeaderName)
		cookie, errCookie := r.Cookie(csrfCookieName)
		if headerToken != "" && errCookie == nil && hmac.Equal([]byte(headerToken), []byte(cookie.Value)) && c.valid(headerToken) {
			next.ServeHTTP(w, r)
			return
		}

		var cookieErrorForLog any
		if errCookie != nil {
			cookieErrorForLog = errCookie.Error()
		}
		logger.FromContext(r.Context()).Warn("CSRF Validation Failed",
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.Bool("headerTokenExists", headerToken != ""),
			slog.Any("cookieError", cookieErrorForLog),
			slog.String("origin", r.Header.Get("Origin")),
		)
		sendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
	})
}
