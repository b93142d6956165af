package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// requestIDStateKey is the request state key the request ID is stored
// under.
const requestIDStateKey = "astra.request_id"

// RequestIDFrom returns the request ID stored in the request state by the
// RequestID middleware. Returns an empty string if no ID is present.
func RequestIDFrom(req *web.Request) string {
	if id, ok := req.State()[requestIDStateKey].(string); ok {
		return id
	}

	return ""
}

// RequestIDConfig configures the Request ID middleware behaviour.
type RequestIDConfig struct {
	// HeaderName overrides the header used to propagate the request ID.
	// Defaults to "X-Request-ID" when empty.
	HeaderName string

	// GenerateFunc is an optional callback that returns a new unique ID.
	// Defaults to GenerateUUIDv4.
	GenerateFunc func() string

	// TrustIncoming, when true, reuses an existing request ID from the
	// incoming request header instead of generating a new one.
	TrustIncoming bool
}

// RequestID returns a middleware that generates or propagates a request ID.
// The ID is stored in the request state for downstream handlers and set on
// the response header for the caller.
func RequestID(cfg RequestIDConfig) Middleware {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv4
	}

	trustIncoming := cfg.TrustIncoming

	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *web.Request) (*web.Response, error) {
			id := ""
			if trustIncoming {
				id = req.Header(headerName)
			}

			if id == "" {
				id = generate()
			}

			req.State()[requestIDStateKey] = id

			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}

			resp.Headers.Set(headerName, id)
			return resp, nil
		}
	}
}

// GenerateUUIDv4 returns a new UUID v4 string.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.4
func GenerateUUIDv4() string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a new UUID v7 string. UUIDs are time-ordered:
// IDs generated later sort lexicographically after earlier ones.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.7
func GenerateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
