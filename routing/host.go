package routing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vitalvas/astra/web"
)

// Host attaches a nested application to requests whose Host header matches
// a pattern. The pattern is a literal hostname where "*" matches any run
// of characters, so "*.example.com" matches every subdomain. Ports are
// stripped from the request host before matching.
type Host struct {
	pattern string
	re      *regexp.Regexp
	app     App
	name    string
}

// NewHost compiles pattern and wraps app.
func NewHost(pattern string, app App, name string) (*Host, error) {
	if app == nil {
		return nil, fmt.Errorf("routing: host %q has no application", pattern)
	}

	var expr strings.Builder
	expr.WriteString("^")
	for i, part := range strings.Split(strings.ToLower(pattern), "*") {
		if i > 0 {
			expr.WriteString(".*")
		}
		expr.WriteString(regexp.QuoteMeta(part))
	}
	expr.WriteString("$")

	re, err := compileRegexp(expr.String())
	if err != nil {
		return nil, fmt.Errorf("routing: host pattern %q: %w", pattern, err)
	}
	return &Host{pattern: pattern, re: re, app: app, name: name}, nil
}

// Pattern returns the original host pattern.
func (h *Host) Pattern() string { return h.pattern }

// Name returns the host unit name, or "".
func (h *Host) Name() string { return h.name }

// Match implements Unit.
func (h *Host) Match(req *web.Request) (*Match, error) {
	if !h.re.MatchString(req.Scope().Host()) {
		return nil, nil
	}

	if req.Scope().Type == web.ScopeWebSocket {
		matcher, ok := h.app.(Matcher)
		if !ok {
			return nil, nil
		}
		return matcher.Match(req)
	}

	return &Match{
		Handler: h.app.Dispatch,
		Request: req,
	}, nil
}

func (h *Host) urlPathFor(name string, params map[string]any) (string, error) {
	reverser, ok := h.app.(interface {
		URLPathFor(name string, params map[string]any) (string, error)
	})
	if !ok {
		return "", ErrNoRouteName
	}
	return reverser.URLPathFor(name, params)
}
