package routing

import (
	"context"
	"net/http"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/astra/web"
)

func newTestRequest(method, path string) *web.Request {
	return web.NewRequest(&web.Scope{
		Type:   web.ScopeHTTP,
		Method: method,
		Path:   path,
		Headers: []web.HeaderPair{
			{Name: "host", Value: "example.com"},
		},
	}, nil)
}

func okHandler(body string) Handler {
	return func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.Text(http.StatusOK, body), nil
	}
}

func TestRouteMatch(t *testing.T) {
	t.Run("extracts typed parameters", func(t *testing.T) {
		route, err := NewRoute("/users/{id:int}", okHandler("ok"))
		require.NoError(t, err)

		match, err := route.Match(newTestRequest(http.MethodGet, "/users/42"))
		require.NoError(t, err)
		require.NotNil(t, match)

		v, ok := match.Request.Param("id")
		require.True(t, ok)
		assert.Equal(t, int64(42), v)
	})

	t.Run("non-matching path yields no match and no error", func(t *testing.T) {
		route, err := NewRoute("/users/{id:int}", okHandler("ok"))
		require.NoError(t, err)

		match, err := route.Match(newTestRequest(http.MethodGet, "/users/abc"))
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("method mismatch is reported distinctly", func(t *testing.T) {
		route, err := NewRoute("/users", okHandler("ok"), WithMethods(http.MethodPost))
		require.NoError(t, err)

		match, err := route.Match(newTestRequest(http.MethodGet, "/users"))
		assert.Nil(t, match)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMethodMismatch)
		assert.Equal(t, []string{"POST"}, AllowedMethods(err))
	})

	t.Run("GET implies HEAD", func(t *testing.T) {
		route, err := NewRoute("/users", okHandler("ok"))
		require.NoError(t, err)

		match, err := route.Match(newTestRequest(http.MethodHead, "/users"))
		require.NoError(t, err)
		assert.NotNil(t, match)
		assert.Equal(t, []string{"GET", "HEAD"}, route.Methods())
	})

	t.Run("methods are normalized to uppercase", func(t *testing.T) {
		route, err := NewRoute("/users", okHandler("ok"), WithMethods("post", "Put"))
		require.NoError(t, err)
		assert.Equal(t, []string{"POST", "PUT"}, route.Methods())
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		_, err := NewRoute("/users", nil)
		assert.Error(t, err)
	})
}

func TestRouterDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("first registered match wins", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/users/{name}", okHandler("by-name")))
		require.NoError(t, r.Route("/users/me", okHandler("me")))

		resp, err := r.Dispatch(ctx, newTestRequest(http.MethodGet, "/users/me"))
		require.NoError(t, err)
		assert.Equal(t, "by-name", string(resp.Body()))
	})

	t.Run("no match yields 404", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/users", okHandler("ok")))

		_, err := r.Dispatch(ctx, newTestRequest(http.MethodGet, "/posts"))
		var webErr *web.Error
		require.ErrorAs(t, err, &webErr)
		assert.Equal(t, http.StatusNotFound, webErr.Status)
	})

	t.Run("method mismatch yields 405 with Allow header", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/users", okHandler("get")))
		require.NoError(t, r.Route("/users", okHandler("post"), WithMethods(http.MethodPost)))

		_, err := r.Dispatch(ctx, newTestRequest(http.MethodDelete, "/users"))
		var webErr *web.Error
		require.ErrorAs(t, err, &webErr)
		assert.Equal(t, http.StatusMethodNotAllowed, webErr.Status)
		assert.Equal(t, "GET, HEAD, POST", webErr.Headers.Get("allow"))
	})

	t.Run("later unit still matches after a method mismatch", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/items", okHandler("list"), WithMethods(http.MethodPost)))
		require.NoError(t, r.Route("/{rest:path}", okHandler("fallback")))

		resp, err := r.Dispatch(ctx, newTestRequest(http.MethodGet, "/items"))
		require.NoError(t, err)
		assert.Equal(t, "fallback", string(resp.Body()))
	})

	t.Run("add accepts several units at once", func(t *testing.T) {
		first, err := NewRoute("/a", okHandler("a"))
		require.NoError(t, err)
		second, err := NewRoute("/b", okHandler("b"))
		require.NoError(t, err)

		r := NewRouter()
		r.Add(first, second)

		resp, err := r.Dispatch(ctx, newTestRequest(http.MethodGet, "/b"))
		require.NoError(t, err)
		assert.Equal(t, "b", string(resp.Body()))
	})

	t.Run("handler returning neither response nor error is an error", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/broken", func(_ context.Context, _ *web.Request) (*web.Response, error) {
			return nil, nil
		}))

		resp, err := r.Dispatch(ctx, newTestRequest(http.MethodGet, "/broken"))
		require.Error(t, err)
		assert.Nil(t, resp)
	})
}

func TestMount(t *testing.T) {
	ctx := context.Background()

	newChild := func(t *testing.T) *Router {
		t.Helper()
		child := NewRouter()
		require.NoError(t, child.Route("/", okHandler("index")))
		require.NoError(t, child.Route("/users/{id:int}", func(_ context.Context, req *web.Request) (*web.Response, error) {
			assert.Equal(t, "/users/42", req.Path())
			assert.Equal(t, "/admin", req.Scope().RootPath)
			return web.Text(http.StatusOK, "user"), nil
		}, WithName("admin-user")))
		return child
	}

	t.Run("strips prefix before delegating", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Mount("/admin", newChild(t), "admin"))

		resp, err := r.Dispatch(ctx, newTestRequest(http.MethodGet, "/admin/users/42"))
		require.NoError(t, err)
		assert.Equal(t, "user", string(resp.Body()))
	})

	t.Run("bare prefix maps to child root", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Mount("/admin", newChild(t), "admin"))

		resp, err := r.Dispatch(ctx, newTestRequest(http.MethodGet, "/admin"))
		require.NoError(t, err)
		assert.Equal(t, "index", string(resp.Body()))
	})

	t.Run("non-prefixed path falls through", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Mount("/admin", newChild(t), "admin"))
		require.NoError(t, r.Route("/{rest:path}", okHandler("outer")))

		resp, err := r.Dispatch(ctx, newTestRequest(http.MethodGet, "/administrator"))
		require.NoError(t, err)
		assert.Equal(t, "outer", string(resp.Body()))
	})

	t.Run("original scope is not mutated", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Mount("/admin", newChild(t), "admin"))

		req := newTestRequest(http.MethodGet, "/admin/users/42")
		_, err := r.Dispatch(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "/admin/users/42", req.Path())
		assert.Equal(t, "", req.Scope().RootPath)
	})

	t.Run("rejects prefix without leading slash", func(t *testing.T) {
		_, err := NewMount("admin", NewRouter(), "")
		assert.Error(t, err)
	})

	t.Run("rejects prefix with trailing slash", func(t *testing.T) {
		_, err := NewMount("/admin/", NewRouter(), "")
		assert.Error(t, err)
	})
}

func TestHost(t *testing.T) {
	ctx := context.Background()

	newApp := func(t *testing.T, body string) *Router {
		t.Helper()
		r := NewRouter()
		require.NoError(t, r.Route("/", okHandler(body)))
		return r
	}

	request := func(host string) *web.Request {
		return web.NewRequest(&web.Scope{
			Type:   web.ScopeHTTP,
			Method: http.MethodGet,
			Path:   "/",
			Headers: []web.HeaderPair{
				{Name: "host", Value: host},
			},
		}, nil)
	}

	t.Run("exact host matches", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Host("api.example.com", newApp(t, "api"), "api"))
		require.NoError(t, r.Route("/", okHandler("default")))

		resp, err := r.Dispatch(ctx, request("api.example.com"))
		require.NoError(t, err)
		assert.Equal(t, "api", string(resp.Body()))

		resp, err = r.Dispatch(ctx, request("www.example.com"))
		require.NoError(t, err)
		assert.Equal(t, "default", string(resp.Body()))
	})

	t.Run("wildcard matches subdomains", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Host("*.example.com", newApp(t, "sub"), "sub"))

		resp, err := r.Dispatch(ctx, request("tenant-a.example.com"))
		require.NoError(t, err)
		assert.Equal(t, "sub", string(resp.Body()))

		resp, err = r.Dispatch(ctx, request("a.b.example.com"))
		require.NoError(t, err)
		assert.Equal(t, "sub", string(resp.Body()))
	})

	t.Run("leading wildcard does not match the bare domain", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Host("*.example.com", newApp(t, "sub"), "sub"))

		_, err := r.Dispatch(ctx, request("example.com"))
		require.Error(t, err)
	})

	t.Run("trailing wildcard matches any suffix", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Host("api.*", newApp(t, "api"), "api"))

		resp, err := r.Dispatch(ctx, request("api.internal.test"))
		require.NoError(t, err)
		assert.Equal(t, "api", string(resp.Body()))

		_, err = r.Dispatch(ctx, request("web.internal.test"))
		require.Error(t, err)
	})

	t.Run("matching ignores port and case", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Host("api.example.com", newApp(t, "api"), "api"))

		resp, err := r.Dispatch(ctx, request("API.Example.COM:8443"))
		require.NoError(t, err)
		assert.Equal(t, "api", string(resp.Body()))
	})
}

func TestWebSocketRoute(t *testing.T) {
	handler := func(_ context.Context, _ *web.Request, _ *websocket.Conn) error {
		return nil
	}

	wsRequest := func(path string) *web.Request {
		return web.NewRequest(&web.Scope{
			Type:   web.ScopeWebSocket,
			Method: http.MethodGet,
			Path:   path,
		}, nil)
	}

	t.Run("matches websocket scopes with typed parameters", func(t *testing.T) {
		route, err := NewWebSocketRoute("/ws/{room}", handler)
		require.NoError(t, err)

		match, err := route.Match(wsRequest("/ws/lobby"))
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Nil(t, match.Handler)
		assert.NotNil(t, match.WebSocket)

		room, ok := match.Request.Param("room")
		require.True(t, ok)
		assert.Equal(t, "lobby", room)
	})

	t.Run("ignores plain http scopes", func(t *testing.T) {
		route, err := NewWebSocketRoute("/ws/{room}", handler)
		require.NoError(t, err)

		match, err := route.Match(newTestRequest(http.MethodGet, "/ws/lobby"))
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("routes websocket scopes through the router", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.WebSocket("/ws/{room}", handler, WithWebSocketName("room")))
		require.NoError(t, r.Route("/ws/{room}", okHandler("http")))

		match, err := r.Match(wsRequest("/ws/lobby"))
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.NotNil(t, match.WebSocket)

		path, err := r.URLPathFor("room", map[string]any{"room": "lobby"})
		require.NoError(t, err)
		assert.Equal(t, "/ws/lobby", path)
	})
}

func TestURLPathFor(t *testing.T) {
	t.Run("resolves a named route", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/users/{id:int}", okHandler("ok"), WithName("user-detail")))

		path, err := r.URLPathFor("user-detail", map[string]any{"id": 42})
		require.NoError(t, err)
		assert.Equal(t, "/users/42", path)
	})

	t.Run("resolves through a mount with prefix applied", func(t *testing.T) {
		child := NewRouter()
		require.NoError(t, child.Route("/users/{id:int}", okHandler("ok"), WithName("admin-user")))
		require.NoError(t, child.Route("/", okHandler("ok"), WithName("admin-index")))

		r := NewRouter()
		require.NoError(t, r.Mount("/admin", child, "admin"))

		path, err := r.URLPathFor("admin-user", map[string]any{"id": 7})
		require.NoError(t, err)
		assert.Equal(t, "/admin/users/7", path)

		path, err = r.URLPathFor("admin-index", nil)
		require.NoError(t, err)
		assert.Equal(t, "/admin", path)
	})

	t.Run("unknown name fails", func(t *testing.T) {
		r := NewRouter()
		_, err := r.URLPathFor("nope", nil)
		assert.ErrorIs(t, err, ErrNoRouteName)
	})

	t.Run("missing parameter fails", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/users/{id:int}", okHandler("ok"), WithName("user-detail")))

		_, err := r.URLPathFor("user-detail", nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoRouteName)
	})
}

func TestMatchSentinels(t *testing.T) {
	t.Run("no units yields ErrNotFound", func(t *testing.T) {
		r := NewRouter()
		_, err := r.Match(newTestRequest(http.MethodGet, "/"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("allow set merges across mismatching routes", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/x", okHandler("a"), WithMethods(http.MethodPut)))
		require.NoError(t, r.Route("/x", okHandler("b"), WithMethods(http.MethodDelete)))

		_, err := r.Match(newTestRequest(http.MethodGet, "/x"))
		require.ErrorIs(t, err, ErrMethodMismatch)
		assert.ElementsMatch(t, []string{"PUT", "DELETE"}, AllowedMethods(err))
	})

	t.Run("lifespan scopes never match routes", func(t *testing.T) {
		r := NewRouter()
		require.NoError(t, r.Route("/", okHandler("ok")))

		req := web.NewRequest(&web.Scope{Type: web.ScopeLifespan, Path: "/"}, nil)
		_, err := r.Match(req)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
