package routing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vitalvas/astra/web"
)

// Handler is the closed handler capability: a function from request
// context to response. Failures are returned, never panicked; a *web.Error
// return carries its own status and detail through the error dispatcher.
type Handler func(ctx context.Context, req *web.Request) (*web.Response, error)

// App is the contract a mounted or hosted nested application satisfies.
type App interface {
	Dispatch(ctx context.Context, req *web.Request) (*web.Response, error)
}

// Matcher is implemented by nested applications that expose their match
// step, which mounts need for delegating websocket scopes.
type Matcher interface {
	Match(req *web.Request) (*Match, error)
}

// ErrNotFound is returned when no routing unit matches.
// Triggers 404 Not Found per RFC 9110 Section 15.5.5.
var ErrNotFound = errors.New("routing: no matching route was found")

// ErrMethodMismatch is returned when the path matches a route but the
// method does not. Triggers 405 Method Not Allowed per RFC 9110
// Section 15.5.6.
var ErrMethodMismatch = errors.New("routing: method is not allowed")

// ErrNoRouteName is returned by reverse lookup when no unit carries the
// requested name.
var ErrNoRouteName = errors.New("routing: no route with that name")

// methodMismatchError carries the methods that would have matched, for the
// Allow header on the 405 response.
type methodMismatchError struct {
	allowed []string
}

func (e *methodMismatchError) Error() string { return ErrMethodMismatch.Error() }

func (e *methodMismatchError) Is(target error) bool { return target == ErrMethodMismatch }

// Match is the outcome of a successful unit match: the handler to invoke
// and the rebuilt child request carrying extracted parameters and any
// mount path rewrites. Exactly one of Handler and WebSocket is set.
type Match struct {
	Handler   Handler
	WebSocket WSHandler
	Request   *web.Request
	Route     *Route
}

// Unit is a single entry of a Router's ordered list: a Route, Mount, Host
// or WebSocketRoute. Match returns (nil, nil) on a plain non-match and an
// error matching ErrMethodMismatch when only the method failed.
type Unit interface {
	Match(req *web.Request) (*Match, error)
}

// Route matches an HTTP method set plus a compiled path pattern and
// invokes a handler. Immutable after construction.
type Route struct {
	pattern string
	path    *compiledPath
	methods map[string]struct{}
	handler Handler
	name    string
}

// RouteOption configures a Route at construction time.
type RouteOption func(*Route)

// WithMethods sets the allowed method set. Methods are case-insensitive;
// the default is GET. Allowing GET implicitly allows HEAD.
func WithMethods(methods ...string) RouteOption {
	return func(r *Route) {
		r.methods = make(map[string]struct{}, len(methods)+1)
		for _, m := range methods {
			r.methods[strings.ToUpper(m)] = struct{}{}
		}
	}
}

// WithName names the route for reverse lookup.
func WithName(name string) RouteOption {
	return func(r *Route) { r.name = name }
}

// NewRoute compiles pattern and returns the route. Compilation failures
// (malformed pattern, unknown convertor tag, duplicate parameter name) are
// fatal at assembly time and never reach serving.
func NewRoute(pattern string, handler Handler, opts ...RouteOption) (*Route, error) {
	if handler == nil {
		return nil, fmt.Errorf("routing: route %q has no handler", pattern)
	}
	compiled, err := compilePath(pattern)
	if err != nil {
		return nil, err
	}
	r := &Route{
		pattern: pattern,
		path:    compiled,
		handler: handler,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.methods == nil {
		r.methods = map[string]struct{}{"GET": {}}
	}
	if _, ok := r.methods["GET"]; ok {
		r.methods["HEAD"] = struct{}{}
	}
	return r, nil
}

// Pattern returns the original pattern string.
func (r *Route) Pattern() string { return r.pattern }

// Name returns the route name, or "".
func (r *Route) Name() string { return r.name }

// Methods returns the allowed methods sorted alphabetically.
func (r *Route) Methods() []string {
	methods := make([]string, 0, len(r.methods))
	for m := range r.methods {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Match implements Unit.
func (r *Route) Match(req *web.Request) (*Match, error) {
	if req.Scope().Type != web.ScopeHTTP {
		return nil, nil
	}
	params, ok := r.path.match(req.Path())
	if !ok {
		return nil, nil
	}
	if _, allowed := r.methods[req.Method()]; !allowed {
		return nil, &methodMismatchError{allowed: r.Methods()}
	}
	return &Match{
		Handler: r.handler,
		Request: req.WithPathParams(params),
		Route:   r,
	}, nil
}

// urlPathFor formats a concrete path when name addresses this route.
func (r *Route) urlPathFor(name string, params map[string]any) (string, error) {
	if name == "" || name != r.name {
		return "", ErrNoRouteName
	}
	return r.path.format(params)
}
