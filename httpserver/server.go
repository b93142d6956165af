package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vitalvas/astra/app"
	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// Server drives an application over net/http.
type Server struct {
	app      *app.App
	cfg      Config
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New wraps application a with the given transport config.
func New(a *app.App, cfg Config) *Server {
	cfg.applyDefaults()

	s := &Server{
		app: a,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s,
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
		IdleTimeout:  cfg.IdleTimeout.Std(),
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWebSocket(w, r)
		return
	}

	scope := ScopeFromRequest(r, web.ScopeHTTP)
	if err := s.app.Serve(r.Context(), scope, newRequestBody(r.Body), newResponseSender(w)); err != nil {
		// The response start may already be on the wire; all we can do is
		// log and let net/http tear the connection down.
		s.app.Logger().Error("response transmission failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
}

// serveWebSocket matches the request before upgrading, so routing misses
// are still answered with plain HTTP statuses.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromRequest(r, web.ScopeWebSocket)
	req := web.NewRequest(scope, nil)

	match, err := s.app.Match(req)
	if err != nil {
		status := http.StatusNotFound
		var webErr *web.Error
		if errors.As(err, &webErr) {
			status = webErr.Status
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	if match.WebSocket == nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		s.app.Logger().Warn("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}
	defer conn.Close()

	if err := match.WebSocket(r.Context(), match.Request, conn); err != nil {
		s.app.Logger().Error("websocket handler failed", "path", r.URL.Path, "error", err)
	}
}

// ListenAndServe runs the application's startup hooks, serves until ctx
// is cancelled, then drains connections and runs the shutdown hooks.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.app.Startup(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.app.Shutdown(context.WithoutCancel(ctx))
		return err
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout.Std())
	defer cancel()

	err := s.httpSrv.Shutdown(drainCtx)
	s.app.Shutdown(drainCtx)
	return err
}

// interface guard
var _ routing.Matcher = (*app.App)(nil)
