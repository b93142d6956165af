package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vitalvas/astra/web"
)

// Router holds an ordered list of routing units and dispatches each request
// to the first unit that fully matches. Registration order is the only
// tie-break; there is no specificity scoring.
//
// Routers are assembled up front and must not be mutated once serving
// starts.
type Router struct {
	units []Unit
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Add appends units to the match list in the given order.
func (rt *Router) Add(units ...Unit) {
	rt.units = append(rt.units, units...)
}

// Route compiles pattern and appends a route. Shorthand for NewRoute + Add.
func (rt *Router) Route(pattern string, handler Handler, opts ...RouteOption) error {
	route, err := NewRoute(pattern, handler, opts...)
	if err != nil {
		return err
	}
	rt.Add(route)
	return nil
}

// Mount appends a nested application under prefix.
func (rt *Router) Mount(prefix string, app App, name string) error {
	mount, err := NewMount(prefix, app, name)
	if err != nil {
		return err
	}
	rt.Add(mount)
	return nil
}

// Host appends a nested application for a host pattern.
func (rt *Router) Host(pattern string, app App, name string) error {
	host, err := NewHost(pattern, app, name)
	if err != nil {
		return err
	}
	rt.Add(host)
	return nil
}

// WebSocket compiles pattern and appends a websocket route.
func (rt *Router) WebSocket(pattern string, handler WSHandler, opts ...func(*WebSocketRoute)) error {
	route, err := NewWebSocketRoute(pattern, handler, opts...)
	if err != nil {
		return err
	}
	rt.Add(route)
	return nil
}

// Units returns the registered units in order.
func (rt *Router) Units() []Unit {
	return rt.units
}

// Match walks the unit list in order and returns the first full match.
// When one or more units matched the path but rejected the method, the
// returned error matches ErrMethodMismatch and AllowedMethods recovers
// the union of their method sets. Otherwise a miss is ErrNotFound.
func (rt *Router) Match(req *web.Request) (*Match, error) {
	var allowed []string
	for _, unit := range rt.units {
		match, err := unit.Match(req)
		if err != nil {
			var mm *methodMismatchError
			if errors.As(err, &mm) {
				allowed = mergeMethods(allowed, mm.allowed)
				continue
			}
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}
	if allowed != nil {
		return nil, &methodMismatchError{allowed: allowed}
	}
	return nil, ErrNotFound
}

// Dispatch matches and invokes the handler, translating routing misses to
// web errors: 404 for no match, 405 with an Allow header for a method
// mismatch. A handler returning neither a response nor an error is
// reported as an error, so middleware unwinding through the chain always
// sees a non-nil response when err is nil.
func (rt *Router) Dispatch(ctx context.Context, req *web.Request) (*web.Response, error) {
	match, err := rt.Match(req)
	if err != nil {
		var mm *methodMismatchError
		if errors.As(err, &mm) {
			return nil, web.NewError(http.StatusMethodNotAllowed, "").
				WithHeader("Allow", strings.Join(mm.allowed, ", "))
		}
		if errors.Is(err, ErrNotFound) {
			return nil, web.NewError(http.StatusNotFound, "")
		}
		return nil, err
	}
	if match.Handler == nil {
		return nil, web.NewError(http.StatusNotFound, "")
	}
	resp, err := match.Handler(ctx, match.Request)
	if resp == nil && err == nil {
		return nil, fmt.Errorf("routing: handler for %s %s returned no response", req.Method(), req.Path())
	}
	return resp, err
}

// URLPathFor walks the unit list and formats the path of the first unit
// carrying name, filling its parameters from params. Missing or extra
// parameters and unformattable values are errors.
func (rt *Router) URLPathFor(name string, params map[string]any) (string, error) {
	for _, unit := range rt.units {
		reverser, ok := unit.(interface {
			urlPathFor(name string, params map[string]any) (string, error)
		})
		if !ok {
			continue
		}
		path, err := reverser.urlPathFor(name, params)
		if err != nil {
			if errors.Is(err, ErrNoRouteName) {
				continue
			}
			return "", err
		}
		return path, nil
	}
	return "", ErrNoRouteName
}

// AllowedMethods recovers the Allow set from a method mismatch error.
func AllowedMethods(err error) []string {
	var mm *methodMismatchError
	if errors.As(err, &mm) {
		return mm.allowed
	}
	return nil
}

func mergeMethods(into, add []string) []string {
	for _, m := range add {
		found := false
		for _, have := range into {
			if have == m {
				found = true
				break
			}
		}
		if !found {
			into = append(into, m)
		}
	}
	return into
}
