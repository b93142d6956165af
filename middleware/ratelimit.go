package middleware

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// RateLimitConfig configures the RateLimit middleware behaviour.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate allowed per key.
	RequestsPerSecond float64

	// Burst is the number of requests allowed above the sustained rate.
	// When zero it defaults to the integer part of RequestsPerSecond, or 1.
	Burst int

	// KeyFunc derives the limiter key from the request. When nil, the
	// client address is used, so each remote host gets its own bucket.
	KeyFunc func(req *web.Request) string
}

// RateLimit returns a middleware that enforces a token bucket per key and
// answers excess requests with 429 Too Many Requests. Limiters are created
// on first use and kept for the lifetime of the process.
func RateLimit(cfg RateLimitConfig) Middleware {
	burst := cfg.Burst
	if burst == 0 {
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(req *web.Request) string {
			return req.Scope().Client
		}
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
			limiters[key] = l
		}
		return l
	}

	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *web.Request) (*web.Response, error) {
			if !limiterFor(keyFunc(req)).Allow() {
				return nil, web.NewError(http.StatusTooManyRequests, "").
					WithHeader("Retry-After", "1")
			}
			return next(ctx, req)
		}
	}
}
