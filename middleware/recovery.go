package middleware

import (
	"context"
	"fmt"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// LogFunc is an optional callback invoked with the request and the
	// recovered value when a panic occurs. When nil, no logging is
	// performed here; the error still reaches the application's error
	// dispatcher.
	LogFunc func(req *web.Request, v any)
}

// Recovery returns a middleware that converts panics in downstream
// handlers into errors, so a misbehaving handler produces a 500 response
// instead of tearing down the connection goroutine.
func Recovery(cfg RecoveryConfig) Middleware {
	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *web.Request) (resp *web.Response, err error) {
			defer func() {
				if v := recover(); v != nil {
					if cfg.LogFunc != nil {
						cfg.LogFunc(req, v)
					}

					resp = nil
					if perr, ok := v.(error); ok {
						err = fmt.Errorf("panic in handler: %w", perr)
					} else {
						err = fmt.Errorf("panic in handler: %v", v)
					}
				}
			}()

			return next(ctx, req)
		}
	}
}
