package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitalvas/astra/web"
)

// Mount attaches a nested application under a path prefix. A matching
// request is handed to the child with the prefix stripped from the scope
// path and appended to the scope root path, so the child routes against
// its own namespace.
type Mount struct {
	prefix string
	app    App
	name   string
}

// NewMount validates prefix and wraps app. The prefix must be "" or start
// with "/" and not end with "/".
func NewMount(prefix string, app App, name string) (*Mount, error) {
	if app == nil {
		return nil, fmt.Errorf("routing: mount %q has no application", prefix)
	}
	if prefix != "" {
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("routing: mount prefix %q must start with '/'", prefix)
		}
		if strings.HasSuffix(prefix, "/") {
			return nil, fmt.Errorf("routing: mount prefix %q must not end with '/'", prefix)
		}
	}
	return &Mount{prefix: prefix, app: app, name: name}, nil
}

// Prefix returns the mount prefix.
func (m *Mount) Prefix() string { return m.prefix }

// Name returns the mount name, or "".
func (m *Mount) Name() string { return m.name }

// Match implements Unit. The rewritten child path is the request path with
// the prefix removed; a request for exactly the prefix maps to "/".
func (m *Mount) Match(req *web.Request) (*Match, error) {
	childPath, ok := m.rewrite(req.Path())
	if !ok {
		return nil, nil
	}

	scope := req.Scope().Clone()
	scope.Path = childPath
	scope.RootPath += m.prefix
	child := req.WithScope(scope)

	if scope.Type == web.ScopeWebSocket {
		matcher, ok := m.app.(Matcher)
		if !ok {
			return nil, nil
		}
		return matcher.Match(child)
	}

	return &Match{
		Handler: func(ctx context.Context, r *web.Request) (*web.Response, error) {
			return m.app.Dispatch(ctx, r)
		},
		Request: child,
	}, nil
}

func (m *Mount) rewrite(path string) (string, bool) {
	if m.prefix == "" {
		return path, true
	}
	if path == m.prefix {
		return "/", true
	}
	if strings.HasPrefix(path, m.prefix+"/") {
		return path[len(m.prefix):], true
	}
	return "", false
}

// urlPathFor resolves a name against the nested application, re-applying
// the prefix to the child's result.
func (m *Mount) urlPathFor(name string, params map[string]any) (string, error) {
	reverser, ok := m.app.(interface {
		URLPathFor(name string, params map[string]any) (string, error)
	})
	if !ok {
		return "", ErrNoRouteName
	}
	child, err := reverser.URLPathFor(name, params)
	if err != nil {
		return "", err
	}
	if child == "/" && m.prefix != "" {
		return m.prefix, nil
	}
	return m.prefix + child, nil
}
