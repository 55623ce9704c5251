// Package gateway is the single way the service talks to remote backends:
// the tenant CRM, the automation webhooks and the public bank directory.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/tenant"
)

// Family identifies a backend family; each has its own URL and payload shape.
type Family int

const (
	FamilyCRM Family = iota
	FamilyWebhook
	FamilyProcessed
	FamilyBankDirectory
)

func (f Family) String() string {
	switch f {
	case FamilyCRM:
		return "crm"
	case FamilyWebhook:
		return "webhook"
	case FamilyProcessed:
		return "processed"
	case FamilyBankDirectory:
		return "bank_directory"
	default:
		return "unknown"
	}
}

// Credentials are the tokens attached to authenticated calls.
type Credentials struct {
	Token       string
	TokenAlboom string
}

type Config struct {
	CRMScheme         string
	CRMHost           string
	AutomationBaseURL string
	BankDirectoryURL  string
	DefaultTenant     string
	Timeout           time.Duration
}

type Client struct {
	cfg            Config
	httpClient     *http.Client
	credentials    func(ctx context.Context) Credentials
	onUnauthorized func(ctx context.Context)
}

type Option func(*Client)

// WithCredentials sets the token source. Without it empty tokens are sent.
func WithCredentials(fn func(ctx context.Context) Credentials) Option {
	return func(c *Client) { c.credentials = fn }
}

// WithUnauthorizedHandler is invoked on every 401/403 from an authenticated family.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.CRMScheme == "" {
		cfg.CRMScheme = "https"
	}
	c := &Client{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		credentials:    func(context.Context) Credentials { return Credentials{} },
		onUnauthorized: func(context.Context) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request is one remote call. Payload is ignored for GET.
type Request struct {
	Family        Family
	Endpoint      string
	// Discriminator is the "endpoint" field of webhook bodies.
	Discriminator string
	Method        string
	Payload       any
}

func (c *Client) tenantOf(ctx context.Context) string {
	if t, ok := tenant.FromContext(ctx); ok {
		return t
	}
	return c.cfg.DefaultTenant
}

// Call performs a single round trip. There are no retries and no caching; any
// failure is returned to the caller.
func (c *Client) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	empresa := c.tenantOf(ctx)

	target, body, err := c.build(req, empresa)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if method != http.MethodGet && body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", req.Endpoint, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Family != FamilyBankDirectory {
		creds := c.credentials(ctx)
		httpReq.Header.Set("Authorization", "Bearer "+creds.Token)
		httpReq.Header.Set("tokenAlboom", creds.TokenAlboom)
	}

	log := logger.FromContext(ctx).With("family", req.Family.String(), "endpoint", req.Endpoint, "empresa", empresa)
	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("Remote call failed", "error", err)
		return nil, fmt.Errorf("failed to call %s %s: %w", req.Family, req.Endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug("Remote call finished", "method", method, "status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := newHTTPError(resp.StatusCode, raw)
		log.Warn("Remote call returned an error", "status", herr.Status, "code", herr.Code, "message", herr.Message)
		if errors.Is(herr, ErrUnauthorized) && req.Family != FamilyBankDirectory {
			c.onUnauthorized(ctx)
		}
		return nil, herr
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: %s %s returned a non-JSON body", ErrDecode, req.Family, req.Endpoint)
	}
	return json.RawMessage(raw), nil
}

func (c *Client) build(req Request, empresa string) (string, []byte, error) {
	endpoint := strings.TrimLeft(req.Endpoint, "/")
	switch req.Family {
	case FamilyCRM:
		target := fmt.Sprintf("%s://%s.%s/api/%s", c.cfg.CRMScheme, url.PathEscape(empresa), c.cfg.CRMHost, endpoint)
		body, err := marshal(req.Payload)
		return target, body, err
	case FamilyWebhook:
		body, err := mergeObject(req.Payload, map[string]any{"endpoint": req.Discriminator, "empresa": empresa})
		return c.cfg.AutomationBaseURL + "/webhook/" + endpoint, body, err
	case FamilyProcessed:
		body, err := mergeObject(req.Payload, map[string]any{"empresa": empresa})
		return c.cfg.AutomationBaseURL + "/webhook/scheduling/processed", body, err
	case FamilyBankDirectory:
		return c.cfg.BankDirectoryURL, nil, nil
	default:
		return "", nil, fmt.Errorf("unknown backend family %d", req.Family)
	}
}

func marshal(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return b, nil
}

// mergeObject flattens payload (which must encode to a JSON object) and sets extra keys on it.
func mergeObject(payload any, extra map[string]any) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		if !bytes.Equal(b, []byte("null")) {
			if err := json.Unmarshal(b, &fields); err != nil {
				return nil, fmt.Errorf("payload must be a JSON object: %w", err)
			}
		}
	}
	for k, v := range extra {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = b
	}
	return json.Marshal(fields)
}

func decode(raw json.RawMessage, out any) error {
	if out == nil || raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// CRM posts to the tenant-scoped REST API.
func (c *Client) CRM(ctx context.Context, path string, payload, out any) error {
	raw, err := c.Call(ctx, Request{Family: FamilyCRM, Endpoint: path, Payload: payload})
	if err != nil {
		return err
	}
	return decode(raw, out)
}

// Webhook posts {endpoint, empresa, ...data} to the automation backend.
func (c *Client) Webhook(ctx context.Context, uri, endpoint string, data, out any) error {
	raw, err := c.Call(ctx, Request{Family: FamilyWebhook, Endpoint: uri, Discriminator: endpoint, Payload: data})
	if err != nil {
		return err
	}
	return decode(raw, out)
}
