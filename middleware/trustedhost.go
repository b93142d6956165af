package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// ErrNoTrustedHosts is returned when TrustedHostConfig.AllowedHosts is
// empty.
var ErrNoTrustedHosts = errors.New("trustedhost: no allowed hosts configured")

// TrustedHostConfig configures the TrustedHost middleware behaviour.
type TrustedHostConfig struct {
	// AllowedHosts lists the hostnames the application serves. An entry
	// of "*" allows everything; a leading "*." allows the domain and all
	// of its subdomains ("*.example.com" allows "example.com" and
	// "api.example.com").
	AllowedHosts []string

	// RedirectWWW, when true, answers a request for "www.<host>" with a
	// permanent redirect to "<host>" when the bare domain is allowed and
	// the www form is not.
	RedirectWWW bool
}

// TrustedHost returns a middleware that rejects requests whose Host header
// does not match AllowedHosts with 400 Bad Request, before the request
// reaches the router. Host matching ignores case and ports.
func TrustedHost(cfg TrustedHostConfig) (Middleware, error) {
	if len(cfg.AllowedHosts) == 0 {
		return nil, ErrNoTrustedHosts
	}

	type hostPattern struct {
		host     string
		wildcard bool
	}

	patterns := make([]hostPattern, 0, len(cfg.AllowedHosts))
	allowAll := false
	for _, h := range cfg.AllowedHosts {
		if h == "*" {
			allowAll = true
			continue
		}
		lower := strings.ToLower(h)
		if domain, ok := strings.CutPrefix(lower, "*."); ok {
			patterns = append(patterns, hostPattern{host: domain, wildcard: true})
			continue
		}
		patterns = append(patterns, hostPattern{host: lower})
	}

	allowed := func(host string) bool {
		if allowAll {
			return true
		}
		for _, p := range patterns {
			if host == p.host {
				return true
			}
			if p.wildcard && strings.HasSuffix(host, "."+p.host) {
				return true
			}
		}
		return false
	}

	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *web.Request) (*web.Response, error) {
			host := req.Scope().Host()

			if allowed(host) {
				return next(ctx, req)
			}

			if cfg.RedirectWWW {
				if bare, ok := strings.CutPrefix(host, "www."); ok && allowed(bare) {
					target := req.Scope().Scheme + "://" + bare + req.Path()
					if raw := req.Scope().RawQuery; raw != "" {
						target += "?" + raw
					}
					return web.Redirect(http.StatusPermanentRedirect, target), nil
				}
			}

			return nil, web.NewError(http.StatusBadRequest, "Invalid host header")
		}
	}, nil
}
