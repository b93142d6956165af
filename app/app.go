package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vitalvas/astra/middleware"
	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// ErrFrozen is returned when routes, middleware or error handlers are
// registered after the first request has been served.
var ErrFrozen = errors.New("app: registration after serving started")

// HookFunc is a lifecycle hook. Startup hooks abort the application on
// failure; shutdown hook failures are logged and the remaining hooks
// still run.
type HookFunc func(ctx context.Context) error

// Option configures an App at construction time.
type Option func(*App)

// WithLogger sets the application logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithDebug enables debug error responses: unhandled errors include the
// error message and a stack trace instead of a bare "Internal Server
// Error". Never enable in production.
func WithDebug(debug bool) Option {
	return func(a *App) { a.debug = debug }
}

// App is the application façade: routing, middleware, error dispatch,
// lifecycle hooks and shared state behind one registration surface.
type App struct {
	router *routing.Router
	logger *slog.Logger
	debug  bool

	middleware     []middleware.Middleware
	kindHandlers   []kindHandler
	statusHandlers map[int]ErrorHandler

	startupHooks  []HookFunc
	shutdownHooks []HookFunc

	state map[string]any

	frozen    atomic.Bool
	buildOnce sync.Once
	handler   routing.Handler
}

// New returns an empty application.
func New(opts ...Option) *App {
	a := &App{
		router:         routing.NewRouter(),
		logger:         slog.Default(),
		statusHandlers: make(map[int]ErrorHandler),
		state:          make(map[string]any),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// State returns the application-level state map, shared across requests.
// Populate it before serving starts; it is not synchronized.
func (a *App) State() map[string]any { return a.state }

// Router returns the underlying router, for registering prebuilt units.
func (a *App) Router() *routing.Router { return a.router }

func (a *App) checkFrozen() error {
	if a.frozen.Load() {
		return ErrFrozen
	}
	return nil
}

// Route registers a handler for a path pattern.
func (a *App) Route(pattern string, handler routing.Handler, opts ...routing.RouteOption) error {
	if err := a.checkFrozen(); err != nil {
		return err
	}
	return a.router.Route(pattern, handler, opts...)
}

// Mount attaches a nested application under a path prefix.
func (a *App) Mount(prefix string, nested routing.App, name string) error {
	if err := a.checkFrozen(); err != nil {
		return err
	}
	return a.router.Mount(prefix, nested, name)
}

// Host attaches a nested application for a host pattern.
func (a *App) Host(pattern string, nested routing.App, name string) error {
	if err := a.checkFrozen(); err != nil {
		return err
	}
	return a.router.Host(pattern, nested, name)
}

// WebSocket registers a websocket handler for a path pattern.
func (a *App) WebSocket(pattern string, handler routing.WSHandler, opts ...func(*routing.WebSocketRoute)) error {
	if err := a.checkFrozen(); err != nil {
		return err
	}
	return a.router.WebSocket(pattern, handler, opts...)
}

// Use appends a middleware. The first middleware registered is the
// outermost layer of the chain.
func (a *App) Use(mw middleware.Middleware) error {
	if err := a.checkFrozen(); err != nil {
		return err
	}
	a.middleware = append(a.middleware, mw)
	return nil
}

// OnStartup registers a startup hook. Hooks run in registration order;
// the first failure aborts startup.
func (a *App) OnStartup(fn HookFunc) {
	a.startupHooks = append(a.startupHooks, fn)
}

// OnShutdown registers a shutdown hook. Hooks run in registration order;
// failures are logged and do not stop the remaining hooks.
func (a *App) OnShutdown(fn HookFunc) {
	a.shutdownHooks = append(a.shutdownHooks, fn)
}

// Startup runs the startup hooks. The transport must not accept requests
// until Startup returns nil.
func (a *App) Startup(ctx context.Context) error {
	for _, fn := range a.startupHooks {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown runs the shutdown hooks.
func (a *App) Shutdown(ctx context.Context) {
	for _, fn := range a.shutdownHooks {
		if err := fn(ctx); err != nil {
			a.logger.Error("shutdown hook failed", "error", err)
		}
	}
}

// URLPathFor resolves a named route to a concrete path.
func (a *App) URLPathFor(name string, params map[string]any) (string, error) {
	return a.router.URLPathFor(name, params)
}

// chain returns the middleware-wrapped dispatch handler, building it on
// first use and freezing registration.
func (a *App) chain() routing.Handler {
	a.buildOnce.Do(func() {
		a.frozen.Store(true)
		a.handler = middleware.Chain(a.router.Dispatch, a.middleware...)
	})
	return a.handler
}

// Dispatch runs the request through the middleware chain and the router.
// It implements routing.App, so an App can be mounted inside another.
func (a *App) Dispatch(ctx context.Context, req *web.Request) (*web.Response, error) {
	return a.chain()(ctx, req)
}

// Match exposes the router's match step, for transports that need the
// handler before acting (websocket upgrades). It implements
// routing.Matcher.
func (a *App) Match(req *web.Request) (*routing.Match, error) {
	a.chain()
	return a.router.Match(req)
}
