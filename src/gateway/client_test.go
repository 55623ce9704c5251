package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/backoffice/backend/src/tenant"
)

type recorded struct {
	Host    string
	Path    string
	Method  string
	Headers http.Header
	Body    map[string]any
}

// rewriteTransport sends every request to the test server while remembering
// the host the client meant to reach.
type rewriteTransport struct {
	target *url.URL
	mu     sync.Mutex
	hosts  []string
}

func (rt *rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.hosts = append(rt.hosts, r.URL.Host)
	rt.mu.Unlock()
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r recorded), opts ...Option) (*Client, *rewriteTransport, *[]recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Host: r.Host, Path: r.URL.Path, Method: r.Method, Headers: r.Header.Clone()}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.Body)
		}
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()
		handler(w, rec)
	}))
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	rt := &rewriteTransport{target: target}

	cfg := Config{
		CRMHost:           "crm.test",
		AutomationBaseURL: "https://automation.test",
		BankDirectoryURL:  "https://banks.test/api/banks/v1",
		DefaultTenant:     "matriz",
	}
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	return New(cfg, opts...), rt, &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCRM_TenantHostAndHeaders(t *testing.T) {
	client, rt, calls := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, map[string]any{"rows": []any{}, "count": 7})
	}, WithCredentials(func(context.Context) Credentials {
		return Credentials{Token: "tok", TokenAlboom: "alb"}
	}))

	ctx := tenant.WithTenant(context.Background(), "studio_sp")
	page, err := client.PaginateTransactions(ctx, TransactionQuery{PageNumber: 1, PageSize: 10, Type: "ap"})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Count)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, []string{"studio_sp.crm.test"}, rt.hosts)
	assert.Equal(t, "/api/account_trans/paginate_apr", call.Path)
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "Bearer tok", call.Headers.Get("Authorization"))
	assert.Equal(t, "alb", call.Headers.Get("tokenAlboom"))
	assert.NotEmpty(t, call.Headers.Get("X-Request-ID"))
	assert.Equal(t, "ap", call.Body["type"])
}

func TestWebhook_BodyShapeAndEmptyTokens(t *testing.T) {
	client, _, calls := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	err := client.Webhook(context.Background(), "solicitacoes-pagamento", "list", map[string]any{"page": 2}, nil)
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, "/webhook/solicitacoes-pagamento", call.Path)
	assert.Equal(t, "list", call.Body["endpoint"])
	assert.Equal(t, "matriz", call.Body["empresa"])
	assert.EqualValues(t, 2, call.Body["page"])
	assert.Equal(t, "Bearer", strings.TrimSpace(call.Headers.Get("Authorization")))
	_, present := call.Headers["Tokenalboom"]
	assert.True(t, present, "tokenAlboom header is sent even when empty")
}

func TestWebhook_RejectsNonObjectPayload(t *testing.T) {
	client, _, calls := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, nil)
	})

	err := client.Webhook(context.Background(), "x", "y", []int{1, 2}, nil)
	require.Error(t, err)
	assert.Empty(t, *calls)
}

func TestProcessed(t *testing.T) {
	client, _, calls := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"data":       []map[string]any{{"id": 10, "order_id": "A1", "name": "Casamento"}},
			"pagination": map[string]any{"page": 1, "limit": 20, "total": 1, "totalPages": 1},
		})
	}, WithCredentials(func(context.Context) Credentials { return Credentials{Token: "t", TokenAlboom: "a"} }))

	page, err := client.Processed(context.Background(), ProcessedQuery{Page: 1, Limit: 20, StartDate: "2025-07-01"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "10", page.Data[0].ItemID())
	assert.Equal(t, 1, page.Pagination.Total)

	call := (*calls)[0]
	assert.Equal(t, "/webhook/scheduling/processed", call.Path)
	assert.Equal(t, "matriz", call.Body["empresa"])
	assert.Equal(t, "2025-07-01", call.Body["start_date"])
	assert.Equal(t, "a", call.Headers.Get("tokenalboom"))
}

func TestBanks_IsUnauthenticatedGet(t *testing.T) {
	client, rt, calls := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, []map[string]any{{"ispb": "0", "name": "BCO DO BRASIL S.A.", "code": 1, "fullName": "Banco do Brasil S.A."}})
	}, WithCredentials(func(context.Context) Credentials { return Credentials{Token: "secret"} }))

	banks, err := client.Banks(context.Background())
	require.NoError(t, err)
	require.Len(t, banks, 1)
	require.NotNil(t, banks[0].Code)
	assert.Equal(t, 1, *banks[0].Code)

	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, "/api/banks/v1", call.Path)
	assert.Empty(t, call.Headers.Get("Authorization"))
	assert.Equal(t, []string{"banks.test"}, rt.hosts)
}

func TestCall_StructuredError(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "exists", "code": CodeUserExist})
	})

	err := client.Webhook(context.Background(), "whatsapp-users", "create", map[string]any{}, nil)
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusConflict, herr.Status)
	assert.Equal(t, CodeUserExist, herr.Code)
	assert.Equal(t, "exists", herr.Message)
	assert.NotNil(t, herr.Data)
	assert.Equal(t, "Usuário já cadastrado com este telefone.", BusinessMessage(err, "fallback"))
}

func TestCall_UnparseableError(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	err := client.CRM(context.Background(), "contacts/list", nil, nil)
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "HTTP error! status: 502", herr.Message)
	assert.Nil(t, herr.Data)
	assert.Equal(t, "fallback", BusinessMessage(err, "fallback"))
}

func TestCall_UnknownCodeUsesBackendMessage(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "valor inválido", "code": "weird"})
	})

	err := client.CRM(context.Background(), "x", nil, nil)
	assert.Equal(t, "valor inválido", BusinessMessage(err, "fallback"))
	assert.Equal(t, "fallback", BusinessMessage(errors.New("plain"), "fallback"))
}

func TestCall_UnauthorizedTriggersHook(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		hits := 0
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r recorded) {
			writeJSON(w, status, map[string]any{"message": "expired"})
		}, WithUnauthorizedHandler(func(context.Context) { hits++ }))

		err := client.CRM(context.Background(), "contacts/list", nil, nil)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, 1, hits)

		_, err = client.Processed(context.Background(), ProcessedQuery{})
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, 2, hits)

		_, err = client.Banks(context.Background())
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, 2, hits, "the public bank directory never ends the session")
	}
}

func TestCall_NonJSONSuccess(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		_, _ = w.Write([]byte("ok"))
	})

	err := client.CRM(context.Background(), "x", nil, &map[string]any{})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCall_EmptySuccessBody(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out map[string]any
	require.NoError(t, client.CRM(context.Background(), "x", nil, &out))
	assert.Nil(t, out)
}
