package routing

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// param is one entry of a compiled pattern's ordered parameter table.
type param struct {
	name string
	tag  string
	conv Convertor
}

// compiledPath is the immutable artifact a route pattern compiles into:
// an anchored matcher, the ordered parameter table and a reverse template
// with %s placeholders for URL building.
type compiledPath struct {
	template string
	re       *regexp.Regexp
	params   []param
	reverse  string
}

// compilePath compiles a route pattern. It fails when the pattern does not
// start with "/", a brace is unclosed, a parameter name repeats, or a type
// tag is not in the convertor registry.
func compilePath(tpl string) (*compiledPath, error) {
	if !strings.HasPrefix(tpl, "/") {
		return nil, fmt.Errorf("routing: pattern %q must start with '/'", tpl)
	}

	idxs, err := braceIndices(tpl)
	if err != nil {
		return nil, err
	}

	var (
		pattern bytes.Buffer
		reverse bytes.Buffer
		params  []param
		end     int
	)

	pattern.WriteByte('^')

	for i := 0; i < len(idxs); i += 2 {
		raw := tpl[end:idxs[i]]
		end = idxs[i+1]

		inner := tpl[idxs[i]+1 : end-1]
		name, tag, tagged := strings.Cut(inner, ":")
		if !tagged || tag == "" {
			tag = "str"
		}
		if name == "" {
			return nil, fmt.Errorf("routing: missing parameter name in %q from %q", tpl[idxs[i]:end], tpl)
		}

		conv, err := convertorFor(tag)
		if err != nil {
			return nil, err
		}

		for _, p := range params {
			if p.name == name {
				return nil, fmt.Errorf("routing: duplicated parameter %q in %q", name, tpl)
			}
		}

		fmt.Fprintf(&pattern, "%s(%s)", regexp.QuoteMeta(raw), conv.Pattern())
		reverse.WriteString(strings.ReplaceAll(raw, "%", "%%"))
		reverse.WriteString("%s")

		params = append(params, param{name: name, tag: tag, conv: conv})
	}

	raw := tpl[end:]
	pattern.WriteString(regexp.QuoteMeta(raw))
	pattern.WriteByte('$')
	reverse.WriteString(strings.ReplaceAll(raw, "%", "%%"))

	re, err := compileRegexp(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("routing: invalid pattern %q: %w", tpl, err)
	}

	return &compiledPath{
		template: tpl,
		re:       re,
		params:   params,
		reverse:  reverse.String(),
	}, nil
}

// match matches a concrete path and decodes the captured parameters
// through their convertors. Decode failures after capture are not expected
// under a well-formed matcher and are treated as a non-match.
func (p *compiledPath) match(path string) (map[string]any, bool) {
	matches := p.re.FindStringSubmatch(path)
	if matches == nil {
		return nil, false
	}
	values := make(map[string]any, len(p.params))
	for i, prm := range p.params {
		v, err := prm.conv.Parse(matches[i+1])
		if err != nil {
			return nil, false
		}
		values[prm.name] = v
	}
	return values, true
}

// format builds a concrete path from the reverse template and the given
// parameter values. Every parameter of the pattern must be supplied.
func (p *compiledPath) format(values map[string]any) (string, error) {
	args := make([]any, len(p.params))
	for i, prm := range p.params {
		v, ok := values[prm.name]
		if !ok {
			return "", fmt.Errorf("routing: missing parameter %q for %q", prm.name, p.template)
		}
		s, err := prm.conv.Format(v)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	return fmt.Sprintf(p.reverse, args...), nil
}

// braceIndices returns the start and end+1 indices of each top-level
// {...} pair in s. Returns an error if braces are unbalanced.
func braceIndices(s string) ([]int, error) {
	var (
		idxs  []int
		level int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if level++; level == 1 {
				idxs = append(idxs, i)
			}
		case '}':
			if level--; level == 0 {
				idxs = append(idxs, i+1)
			} else if level < 0 {
				return nil, fmt.Errorf("routing: unbalanced braces in %q", s)
			}
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("routing: unbalanced braces in %q", s)
	}
	return idxs, nil
}
