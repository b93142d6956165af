package web

import (
	"context"
	"strings"
)

// ScopeType identifies the kind of inbound connection.
type ScopeType string

const (
	// ScopeHTTP is a regular HTTP request/response exchange.
	ScopeHTTP ScopeType = "http"
	// ScopeWebSocket is a connection requesting a WebSocket upgrade.
	ScopeWebSocket ScopeType = "websocket"
	// ScopeLifespan represents the startup/shutdown event channel.
	ScopeLifespan ScopeType = "lifespan"
)

// HeaderPair is a single header name/value pair as received from the
// transport, in wire order.
type HeaderPair struct {
	Name  string
	Value string
}

// Scope describes one inbound connection. It is constructed by the
// transport adapter and treated as immutable by the engine: mount
// boundaries produce a rebuilt copy via Clone instead of mutating the
// original, so nested applications never alias a parent's scope.
type Scope struct {
	// Type is the connection kind ("http", "websocket" or "lifespan").
	Type ScopeType

	// Method is the uppercased request method token (RFC 9110 Section 9).
	Method string

	// Path is the decoded request path. Mounts rewrite it to the suffix
	// seen by the nested application.
	Path string

	// RawQuery is the query string without the leading "?".
	RawQuery string

	// Scheme is "http" or "https" as reported by the transport.
	Scheme string

	// Headers holds the request headers in the order they arrived.
	Headers []HeaderPair

	// Server is the local host:port, Client the remote address.
	Server string
	Client string

	// RootPath accumulates the mount prefixes stripped from Path, so a
	// nested application can reconstruct externally visible URLs.
	RootPath string
}

// Header returns the first value of the named header. Lookup is
// case-insensitive per RFC 9110 Section 5.1.
func (s *Scope) Header(name string) string {
	for _, h := range s.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// HeaderValues returns all values of the named header in wire order.
func (s *Scope) HeaderValues(name string) []string {
	var values []string
	for _, h := range s.Headers {
		if strings.EqualFold(h.Name, name) {
			values = append(values, h.Value)
		}
	}
	return values
}

// Host returns the lowercased hostname from the Host header without the
// port, per RFC 9112 Section 3.2.
func (s *Scope) Host() string {
	host := s.Header("Host")
	if i := strings.IndexByte(host, ':'); i != -1 {
		host = host[:i]
	}
	return strings.ToLower(host)
}

// Clone returns a shallow copy of the scope. The header slice is copied so
// the clone can be extended without aliasing the parent.
func (s *Scope) Clone() *Scope {
	clone := *s
	clone.Headers = make([]HeaderPair, len(s.Headers))
	copy(clone.Headers, s.Headers)
	return &clone
}

// BodySource yields the request body as a sequence of chunks. Next returns
// the next chunk and whether more chunks follow; after the final chunk it
// keeps returning (nil, false, nil). Implementations must observe context
// cancellation so an abandoned request stops at the next read.
type BodySource interface {
	Next(ctx context.Context) (chunk []byte, more bool, err error)
}

// NoBody is a BodySource that is immediately exhausted.
var NoBody BodySource = noBody{}

type noBody struct{}

func (noBody) Next(context.Context) ([]byte, bool, error) { return nil, false, nil }

// BytesBody returns a BodySource delivering the given bytes as one chunk.
// Intended for tests and in-process dispatch.
func BytesBody(p []byte) BodySource {
	return &bytesBody{buf: p}
}

type bytesBody struct {
	buf  []byte
	done bool
}

func (b *bytesBody) Next(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if b.done {
		return nil, false, nil
	}
	b.done = true
	return b.buf, false, nil
}

// ResponseSender is the transport-side sink for one response. Start must be
// called exactly once before any chunk; Chunk with final=true marks the end
// of the body. Implementations must observe context cancellation so an
// abandoned response stops at the next write.
type ResponseSender interface {
	Start(ctx context.Context, status int, headers *Headers) error
	Chunk(ctx context.Context, p []byte, final bool) error
}
