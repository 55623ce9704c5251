package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubdomain(t *testing.T) {
	tests := map[string]string{
		"studio.example.com":         "studio",
		"studio.example.com:8443":    "studio",
		"studio.app.example.com.br":  "studio",
		"example.com":                "",
		"www.example.com":            "",
		"127.0.0.1:8080":             "",
		"localhost:3000":             "",
		"studio.localhost:3000":      "studio",
		"":                           "",
	}
	for host, want := range tests {
		assert.Equal(t, want, Subdomain(host), host)
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(map[string]string{"Studio": "studio_sp", "rio": "studio_rj"}, "matriz")

	assert.Equal(t, "studio_sp", r.Resolve("studio.example.com", "/accounts-payable"))
	assert.Equal(t, "studio_rj", r.Resolve("localhost:3000", "/rio/accounts-payable"))
	assert.Equal(t, "studio_rj", r.Resolve("unknown.example.com", "/rio"))
	assert.Equal(t, "matriz", r.Resolve("unknown.example.com", "/api/payables"))
	assert.Equal(t, "matriz", r.Resolve("", ""))
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithTenant(context.Background(), "studio_sp")
	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "studio_sp", got)
}
