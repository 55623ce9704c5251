package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/username/backoffice/backend/src/gateway"
)

type call struct {
	Path     string
	Endpoint string
	Body     map[string]any
}

type route func(body map[string]any) (int, any)

// backend fakes the CRM, the automation webhooks and the bank directory behind one server.
// Routes are keyed by path, or by "path#endpoint" for webhook discriminators.
type backend struct {
	mu     sync.Mutex
	calls  []call
	routes map[string]route
}

func (b *backend) on(key string, r route) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[key] = r
}

func (b *backend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Path == key || c.Path+"#"+c.Endpoint == key {
			n++
		}
	}
	return n
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *backend) last(key string) call {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		c := b.calls[i]
		if c.Path == key || c.Path+"#"+c.Endpoint == key {
			return c
		}
	}
	return call{}
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{Path: r.URL.Path}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &c.Body)
	}
	if ep, ok := c.Body["endpoint"].(string); ok {
		c.Endpoint = ep
	}

	b.mu.Lock()
	b.calls = append(b.calls, c)
	handler, ok := b.routes[c.Path+"#"+c.Endpoint]
	if !ok {
		handler, ok = b.routes[c.Path]
	}
	b.mu.Unlock()

	status, payload := http.StatusNotFound, any(map[string]string{"message": "not found"})
	if ok {
		status, payload = handler(c.Body)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type redirect struct{ target *url.URL }

func (rt redirect) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newBackend(t *testing.T, opts ...gateway.Option) (*backend, *gateway.Client) {
	t.Helper()
	b := &backend{routes: map[string]route{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg := gateway.Config{
		CRMHost:           "crm.test",
		AutomationBaseURL: "https://automation.test",
		BankDirectoryURL:  "https://banks.test/api/banks/v1",
		DefaultTenant:     "matriz",
	}
	opts = append([]gateway.Option{gateway.WithHTTPClient(&http.Client{Transport: redirect{target: target}})}, opts...)
	return b, gateway.New(cfg, opts...)
}

func ok(v any) route {
	return func(map[string]any) (int, any) { return http.StatusOK, v }
}

func fixedNow() time.Time { return time.Date(2025, time.July, 10, 9, 0, 0, 0, time.UTC) }

const (
	pathTransactions = "/api/account_trans/paginate_apr"
	pathSchedules    = "/api/schedules/list"
	pathProcessed    = "/webhook/scheduling/processed"
	pathPayables     = "/webhook/contas-pagar"
	pathReceivables  = "/webhook/contas-receber"
	pathRequests     = "/webhook/solicitacoes-pagamento"
)
