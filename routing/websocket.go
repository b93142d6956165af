package routing

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/vitalvas/astra/web"
)

// WSHandler handles an accepted websocket connection. The connection is
// closed by the transport when the handler returns.
type WSHandler func(ctx context.Context, req *web.Request, conn *websocket.Conn) error

// WebSocketRoute matches websocket scopes against a compiled path pattern.
// Method sets do not apply; the opening handshake is always a GET.
type WebSocketRoute struct {
	pattern string
	path    *compiledPath
	handler WSHandler
	name    string
}

// NewWebSocketRoute compiles pattern and returns the route.
func NewWebSocketRoute(pattern string, handler WSHandler, opts ...func(*WebSocketRoute)) (*WebSocketRoute, error) {
	if handler == nil {
		return nil, fmt.Errorf("routing: websocket route %q has no handler", pattern)
	}
	compiled, err := compilePath(pattern)
	if err != nil {
		return nil, err
	}
	r := &WebSocketRoute{pattern: pattern, path: compiled, handler: handler}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// WithWebSocketName names the websocket route for reverse lookup.
func WithWebSocketName(name string) func(*WebSocketRoute) {
	return func(r *WebSocketRoute) { r.name = name }
}

// Pattern returns the original pattern string.
func (r *WebSocketRoute) Pattern() string { return r.pattern }

// Name returns the route name, or "".
func (r *WebSocketRoute) Name() string { return r.name }

// Match implements Unit.
func (r *WebSocketRoute) Match(req *web.Request) (*Match, error) {
	if req.Scope().Type != web.ScopeWebSocket {
		return nil, nil
	}
	params, ok := r.path.match(req.Path())
	if !ok {
		return nil, nil
	}
	return &Match{
		WebSocket: r.handler,
		Request:   req.WithPathParams(params),
	}, nil
}

func (r *WebSocketRoute) urlPathFor(name string, params map[string]any) (string, error) {
	if name == "" || name != r.name {
		return "", ErrNoRouteName
	}
	return r.path.format(params)
}
