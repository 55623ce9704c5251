// Package tenant resolves the active company ("empresa") of a request.
package tenant

import (
	"context"
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

type contextKey string

const tenantKey contextKey = "tenant"

// Resolver maps hostnames and URL prefixes to tenants through a static table.
type Resolver struct {
	aliases  map[string]string
	fallback string
}

func NewResolver(aliases map[string]string, fallback string) *Resolver {
	m := make(map[string]string, len(aliases))
	for alias, t := range aliases {
		m[strings.ToLower(alias)] = t
	}
	return &Resolver{aliases: m, fallback: fallback}
}

// Resolve tries the subdomain first, then the first path segment, then the default.
func (r *Resolver) Resolve(host, path string) string {
	if sub := Subdomain(host); sub != "" {
		if t, ok := r.aliases[sub]; ok {
			return t
		}
	}
	if seg := firstSegment(path); seg != "" {
		if t, ok := r.aliases[seg]; ok {
			return t
		}
	}
	return r.fallback
}

func (r *Resolver) Default() string { return r.fallback }

// Subdomain returns the leftmost label in front of the registrable domain,
// or "" for bare domains, IPs and localhost.
func Subdomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}

	var rest string
	if strings.HasSuffix(host, ".localhost") {
		rest = strings.TrimSuffix(host, ".localhost")
	} else {
		registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil || registrable == host {
			return ""
		}
		rest = strings.TrimSuffix(host, "."+registrable)
	}

	label, _, _ := strings.Cut(rest, ".")
	if label == "www" {
		return ""
	}
	return label
}

func firstSegment(path string) string {
	path = strings.TrimLeft(path, "/")
	seg, _, _ := strings.Cut(path, "/")
	return strings.ToLower(seg)
}

func WithTenant(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// FromContext returns the tenant stored by the request middleware.
func FromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tenantKey).(string)
	return t, ok && t != ""
}
