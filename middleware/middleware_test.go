package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

func newTestRequest(method, path string, headers ...web.HeaderPair) *web.Request {
	return web.NewRequest(&web.Scope{
		Type:    web.ScopeHTTP,
		Method:  method,
		Path:    path,
		Scheme:  "http",
		Headers: headers,
	}, nil)
}

func TestChain(t *testing.T) {
	t.Run("first registered middleware is outermost", func(t *testing.T) {
		var order []string

		tag := func(name string) Middleware {
			return func(next routing.Handler) routing.Handler {
				return func(ctx context.Context, req *web.Request) (*web.Response, error) {
					order = append(order, name+"-in")
					resp, err := next(ctx, req)
					order = append(order, name+"-out")
					return resp, err
				}
			}
		}

		handler := Chain(func(_ context.Context, _ *web.Request) (*web.Response, error) {
			order = append(order, "handler")
			return web.Text(http.StatusOK, "ok"), nil
		}, tag("a"), tag("b"))

		_, err := handler(context.Background(), newTestRequest(http.MethodGet, "/"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a-in", "b-in", "handler", "b-out", "a-out"}, order)
	})

	t.Run("short-circuit skips inner layers", func(t *testing.T) {
		blocker := func(_ routing.Handler) routing.Handler {
			return func(_ context.Context, _ *web.Request) (*web.Response, error) {
				return web.Text(http.StatusForbidden, "blocked"), nil
			}
		}

		called := false
		handler := Chain(func(_ context.Context, _ *web.Request) (*web.Response, error) {
			called = true
			return web.Text(http.StatusOK, "ok"), nil
		}, blocker)

		resp, err := handler(context.Background(), newTestRequest(http.MethodGet, "/"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Status)
		assert.False(t, called)
	})
}

func TestRecovery(t *testing.T) {
	t.Run("converts panic to error", func(t *testing.T) {
		var logged any
		mw := Recovery(RecoveryConfig{
			LogFunc: func(_ *web.Request, v any) { logged = v },
		})

		handler := mw(func(_ context.Context, _ *web.Request) (*web.Response, error) {
			panic("boom")
		})

		resp, err := handler(context.Background(), newTestRequest(http.MethodGet, "/"))
		assert.Nil(t, resp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Equal(t, "boom", logged)
	})

	t.Run("passes normal responses through", func(t *testing.T) {
		mw := Recovery(RecoveryConfig{})
		handler := mw(func(_ context.Context, _ *web.Request) (*web.Response, error) {
			return web.Text(http.StatusOK, "ok"), nil
		})

		resp, err := handler(context.Background(), newTestRequest(http.MethodGet, "/"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
	})
}

func TestRequestID(t *testing.T) {
	okHandler := func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.Text(http.StatusOK, "ok"), nil
	}

	t.Run("generates an id and sets the response header", func(t *testing.T) {
		mw := RequestID(RequestIDConfig{})
		var seen string
		handler := mw(func(_ context.Context, req *web.Request) (*web.Response, error) {
			seen = RequestIDFrom(req)
			return web.Text(http.StatusOK, "ok"), nil
		})

		resp, err := handler(context.Background(), newTestRequest(http.MethodGet, "/"))
		require.NoError(t, err)
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, resp.Headers.Get("X-Request-ID"))
	})

	t.Run("trusts incoming header when configured", func(t *testing.T) {
		mw := RequestID(RequestIDConfig{TrustIncoming: true})
		handler := mw(okHandler)

		req := newTestRequest(http.MethodGet, "/", web.HeaderPair{Name: "X-Request-ID", Value: "abc-123"})
		resp, err := handler(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "abc-123", resp.Headers.Get("X-Request-ID"))
	})

	t.Run("ignores incoming header by default", func(t *testing.T) {
		mw := RequestID(RequestIDConfig{})
		handler := mw(okHandler)

		req := newTestRequest(http.MethodGet, "/", web.HeaderPair{Name: "X-Request-ID", Value: "abc-123"})
		resp, err := handler(context.Background(), req)
		require.NoError(t, err)
		assert.NotEqual(t, "abc-123", resp.Headers.Get("X-Request-ID"))
	})
}

func TestTrustedHost(t *testing.T) {
	okHandler := func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.Text(http.StatusOK, "ok"), nil
	}

	request := func(host string) *web.Request {
		return newTestRequest(http.MethodGet, "/", web.HeaderPair{Name: "Host", Value: host})
	}

	t.Run("allows listed hosts", func(t *testing.T) {
		mw, err := TrustedHost(TrustedHostConfig{AllowedHosts: []string{"example.com"}})
		require.NoError(t, err)

		resp, err := mw(okHandler)(context.Background(), request("example.com"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
	})

	t.Run("rejects unlisted hosts with 400", func(t *testing.T) {
		mw, err := TrustedHost(TrustedHostConfig{AllowedHosts: []string{"example.com"}})
		require.NoError(t, err)

		_, err = mw(okHandler)(context.Background(), request("evil.com"))
		var webErr *web.Error
		require.ErrorAs(t, err, &webErr)
		assert.Equal(t, http.StatusBadRequest, webErr.Status)
	})

	t.Run("wildcard pattern allows domain and subdomains", func(t *testing.T) {
		mw, err := TrustedHost(TrustedHostConfig{AllowedHosts: []string{"*.example.com"}})
		require.NoError(t, err)

		_, err = mw(okHandler)(context.Background(), request("api.example.com"))
		assert.NoError(t, err)

		_, err = mw(okHandler)(context.Background(), request("notexample.com"))
		assert.Error(t, err)
	})

	t.Run("matching ignores the port", func(t *testing.T) {
		mw, err := TrustedHost(TrustedHostConfig{AllowedHosts: []string{"example.com"}})
		require.NoError(t, err)

		_, err = mw(okHandler)(context.Background(), request("example.com:8080"))
		assert.NoError(t, err)
	})

	t.Run("redirects www form to the bare domain", func(t *testing.T) {
		mw, err := TrustedHost(TrustedHostConfig{
			AllowedHosts: []string{"example.com"},
			RedirectWWW:  true,
		})
		require.NoError(t, err)

		resp, err := mw(okHandler)(context.Background(), request("www.example.com"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusPermanentRedirect, resp.Status)
		assert.Equal(t, "http://example.com/", resp.Headers.Get("Location"))
	})

	t.Run("requires at least one host", func(t *testing.T) {
		_, err := TrustedHost(TrustedHostConfig{})
		assert.ErrorIs(t, err, ErrNoTrustedHosts)
	})
}

func TestRateLimit(t *testing.T) {
	okHandler := func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.Text(http.StatusOK, "ok"), nil
	}

	t.Run("rejects requests above the burst with 429", func(t *testing.T) {
		mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
		handler := mw(okHandler)

		ctx := context.Background()
		req := newTestRequest(http.MethodGet, "/")

		for i := 0; i < 2; i++ {
			_, err := handler(ctx, req)
			require.NoError(t, err)
		}

		_, err := handler(ctx, req)
		var webErr *web.Error
		require.ErrorAs(t, err, &webErr)
		assert.Equal(t, http.StatusTooManyRequests, webErr.Status)
		assert.Equal(t, "1", webErr.Headers.Get("Retry-After"))
	})

	t.Run("separate keys get separate buckets", func(t *testing.T) {
		mw := RateLimit(RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             1,
			KeyFunc: func(req *web.Request) string {
				return req.Path()
			},
		})
		handler := mw(okHandler)
		ctx := context.Background()

		_, err := handler(ctx, newTestRequest(http.MethodGet, "/a"))
		require.NoError(t, err)

		_, err = handler(ctx, newTestRequest(http.MethodGet, "/b"))
		require.NoError(t, err)

		_, err = handler(ctx, newTestRequest(http.MethodGet, "/a"))
		assert.Error(t, err)
	})
}
