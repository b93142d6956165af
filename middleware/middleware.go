package middleware

import "github.com/vitalvas/astra/routing"

// Middleware wraps a handler with additional behaviour.
type Middleware func(next routing.Handler) routing.Handler

// Chain wraps handler with the given middleware so that the first element
// is the outermost layer.
func Chain(handler routing.Handler, middleware ...Middleware) routing.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}
