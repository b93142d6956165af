package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// ErrWildcardCredentials is returned when AllowedOrigins contains "*" and
// AllowCredentials is true. Use AllowOriginFunc for dynamic origin checks
// with credentials.
var ErrWildcardCredentials = errors.New("wildcard origin \"*\" cannot be used with AllowCredentials; use AllowOriginFunc instead")

// CORSConfig configures the CORS middleware behaviour.
//
// Spec references:
//   - CORS protocol: https://fetch.spec.whatwg.org/#http-cors-protocol
//   - Web Origin:    https://www.rfc-editor.org/rfc/rfc6454
//   - HTTP Vary:     https://www.rfc-editor.org/rfc/rfc9110#field.vary
type CORSConfig struct {
	// AllowedOrigins is a list of exact origin strings, "*" for wildcard,
	// or subdomain wildcard patterns like "https://*.example.com".
	AllowedOrigins []string

	// AllowOriginFunc is an optional dynamic callback invoked when the
	// origin does not match any entry in AllowedOrigins. Return true to allow.
	AllowOriginFunc func(origin string) bool

	// AllowedMethods is the set of methods advertised in preflight
	// responses. Defaults to GET, HEAD and POST.
	AllowedMethods []string

	// AllowedHeaders lists the headers the client may send in the actual
	// request. When empty the middleware reflects the Access-Control-Request-Headers
	// value from the preflight request. Use "*" to reflect all requested headers.
	AllowedHeaders []string

	// ExposeHeaders lists the headers the browser may expose to client code.
	ExposeHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials: true.
	// Per the Fetch Standard, "*" cannot be used as Allow-Origin when
	// credentials are enabled.
	AllowCredentials bool

	// MaxAge is the duration in seconds a preflight result may be cached.
	// Positive values are sent as-is, negative values emit "0", zero omits
	// the header.
	MaxAge int

	// PreflightStatus overrides the status code for preflight responses.
	// When zero the middleware uses 204 No Content.
	PreflightStatus int
}

// wildcardPattern represents a subdomain wildcard pattern split at the "*".
type wildcardPattern struct {
	prefix string
	suffix string
}

func (c *CORSConfig) hasWildcardOrigin() bool {
	return slices.Contains(c.AllowedOrigins, "*")
}

// parseOrigins normalizes AllowedOrigins to lowercase and splits them into
// exact matches and wildcard patterns. Returns an error if a pattern
// contains multiple wildcards.
func parseOrigins(origins []string) ([]string, []wildcardPattern, error) {
	var exact []string
	var patterns []wildcardPattern

	for _, o := range origins {
		if o == "*" {
			exact = append(exact, o)
			continue
		}

		lower := strings.ToLower(o)

		if strings.Contains(lower, "*") {
			parts := strings.SplitN(lower, "*", 2)
			if strings.Contains(parts[1], "*") {
				return nil, nil, errors.New("origin pattern contains multiple wildcards: " + o)
			}

			patterns = append(patterns, wildcardPattern{
				prefix: parts[0],
				suffix: parts[1],
			})
		} else {
			exact = append(exact, lower)
		}
	}

	return exact, patterns, nil
}

// matchOrigin reports whether originLower matches any exact origin or
// wildcard pattern.
func matchOrigin(originLower string, exactOrigins []string, patterns []wildcardPattern) bool {
	for _, o := range exactOrigins {
		if o == "*" || o == originLower {
			return true
		}
	}

	for _, wp := range patterns {
		if len(originLower) >= len(wp.prefix)+len(wp.suffix) &&
			strings.HasPrefix(originLower, wp.prefix) &&
			strings.HasSuffix(originLower, wp.suffix) {
			return true
		}
	}

	return false
}

// CORS returns a middleware implementing the CORS protocol per the Fetch
// Standard. It validates the Origin header, answers preflight OPTIONS
// requests without calling the inner handler, and decorates actual
// responses with the allow and expose headers.
//
// It returns an error if the configuration is invalid (e.g. wildcard
// origin combined with AllowCredentials).
func CORS(cfg CORSConfig) (Middleware, error) {
	if cfg.hasWildcardOrigin() && cfg.AllowCredentials {
		return nil, ErrWildcardCredentials
	}

	exactOrigins, wildcardPatterns, err := parseOrigins(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	isAllowed := func(originLower, rawOrigin string) bool {
		if matchOrigin(originLower, exactOrigins, wildcardPatterns) {
			return true
		}
		if cfg.AllowOriginFunc != nil {
			return cfg.AllowOriginFunc(rawOrigin)
		}
		return false
	}

	hasSpecificOrigins := !cfg.hasWildcardOrigin() &&
		(len(exactOrigins) > 0 || len(wildcardPatterns) > 0 || cfg.AllowOriginFunc != nil)

	headersWildcard := slices.Contains(cfg.AllowedHeaders, "*")

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodHead, http.MethodPost}
	}

	preflightStatus := cfg.PreflightStatus
	if preflightStatus == 0 {
		preflightStatus = http.StatusNoContent
	}

	setOriginHeaders := func(h *web.Headers, origin string) {
		if cfg.hasWildcardOrigin() && !cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
	}

	preflight := func(req *web.Request) *web.Response {
		resp := web.NewResponse(preflightStatus, nil)
		setOriginHeaders(resp.Headers, req.Header("Origin"))
		resp.Headers.Set("Access-Control-Allow-Methods", strings.Join(methods, ","))

		if headersWildcard {
			if reqHeaders := req.Header("Access-Control-Request-Headers"); reqHeaders != "" {
				resp.Headers.Set("Access-Control-Allow-Headers", reqHeaders)
			}
		} else if len(cfg.AllowedHeaders) > 0 {
			resp.Headers.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ","))
		} else if reqHeaders := req.Header("Access-Control-Request-Headers"); reqHeaders != "" {
			resp.Headers.Set("Access-Control-Allow-Headers", reqHeaders)
		}

		if cfg.MaxAge > 0 {
			resp.Headers.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		} else if cfg.MaxAge < 0 {
			resp.Headers.Set("Access-Control-Max-Age", "0")
		}

		resp.Headers.Add("Vary", "Access-Control-Request-Method")
		resp.Headers.Add("Vary", "Access-Control-Request-Headers")
		return resp
	}

	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *web.Request) (*web.Response, error) {
			rawOrigin := req.Header("Origin")

			if rawOrigin == "" {
				resp, err := next(ctx, req)
				if err == nil && hasSpecificOrigins {
					resp.Headers.Add("Vary", "Origin")
				}
				return resp, err
			}

			if !isAllowed(strings.ToLower(rawOrigin), rawOrigin) {
				return next(ctx, req)
			}

			if req.Method() == http.MethodOptions && req.Header("Access-Control-Request-Method") != "" {
				return preflight(req), nil
			}

			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}

			setOriginHeaders(resp.Headers, rawOrigin)
			if len(cfg.ExposeHeaders) > 0 {
				resp.Headers.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ","))
			}
			return resp, nil
		}
	}, nil
}
