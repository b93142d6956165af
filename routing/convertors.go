package routing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Convertor is a typed parse/format pair keyed by a pattern type tag.
// Pattern returns the regexp fragment restricting the lexical form of the
// segment, Parse decodes a matched segment into a typed value, and Format
// turns a value back into a URL segment for reverse lookup.
//
// For every built-in convertor, Parse(Format(v)) == v holds for all values
// v that Format accepts. The converse is not guaranteed: "007" parses to 7
// but formats back to "7".
type Convertor interface {
	Pattern() string
	Parse(s string) (any, error)
	Format(v any) (string, error)
}

// convertors is the process-wide tag registry. Append-only: tags are never
// removed or replaced. It must be fully populated before the first request
// is served; a registration is only visible to routes compiled afterwards.
var convertors = struct {
	sync.RWMutex
	m map[string]Convertor
}{
	m: map[string]Convertor{
		"str":   stringConvertor{},
		"path":  pathConvertor{},
		"int":   intConvertor{},
		"float": floatConvertor{},
		"uuid":  uuidConvertor{},
		"slug":  slugConvertor{},
	},
}

// RegisterConvertor adds a custom convertor under the given tag. It fails
// when the tag is already taken; built-ins cannot be replaced.
func RegisterConvertor(tag string, c Convertor) error {
	convertors.Lock()
	defer convertors.Unlock()
	if _, exists := convertors.m[tag]; exists {
		return fmt.Errorf("routing: convertor %q already registered", tag)
	}
	convertors.m[tag] = c
	return nil
}

// convertorFor returns the convertor registered under tag.
func convertorFor(tag string) (Convertor, error) {
	convertors.RLock()
	defer convertors.RUnlock()
	c, ok := convertors.m[tag]
	if !ok {
		return nil, fmt.Errorf("routing: unknown convertor type %q", tag)
	}
	return c, nil
}

// stringConvertor is the default tag: any run of non-slash characters.
type stringConvertor struct{}

func (stringConvertor) Pattern() string { return `[^/]+` }

func (stringConvertor) Parse(s string) (any, error) { return s, nil }

func (stringConvertor) Format(v any) (string, error) {
	s := fmt.Sprint(v)
	if s == "" {
		return "", fmt.Errorf("routing: str value must not be empty")
	}
	if strings.Contains(s, "/") {
		return "", fmt.Errorf("routing: str value %q may not contain path separators", s)
	}
	return s, nil
}

// pathConvertor matches across slashes, including the empty remainder.
type pathConvertor struct{}

func (pathConvertor) Pattern() string { return `.*` }

func (pathConvertor) Parse(s string) (any, error) { return s, nil }

func (pathConvertor) Format(v any) (string, error) { return fmt.Sprint(v), nil }

type intConvertor struct{}

func (intConvertor) Pattern() string { return `-?[0-9]+` }

func (intConvertor) Parse(s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("routing: cannot convert %q to integer", s)
	}
	return n, nil
}

func (intConvertor) Format(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.FormatInt(int64(n), 10), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	default:
		return "", fmt.Errorf("routing: int convertor cannot format %T", v)
	}
}

type floatConvertor struct{}

func (floatConvertor) Pattern() string { return `-?[0-9]+(?:\.[0-9]+)?` }

func (floatConvertor) Parse(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("routing: cannot convert %q to float", s)
	}
	return f, nil
}

func (floatConvertor) Format(v any) (string, error) {
	switch f := v.(type) {
	case float64:
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(f), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(f), nil
	default:
		return "", fmt.Errorf("routing: float convertor cannot format %T", v)
	}
}

// uuidConvertor validates the RFC 9562 textual form and decodes into a
// uuid.UUID.
type uuidConvertor struct{}

func (uuidConvertor) Pattern() string {
	return `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`
}

func (uuidConvertor) Parse(s string) (any, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("routing: invalid uuid %q", s)
	}
	return id, nil
}

func (uuidConvertor) Format(v any) (string, error) {
	switch id := v.(type) {
	case uuid.UUID:
		return id.String(), nil
	case string:
		parsed, err := uuid.Parse(id)
		if err != nil {
			return "", fmt.Errorf("routing: invalid uuid %q", id)
		}
		return parsed.String(), nil
	default:
		return "", fmt.Errorf("routing: uuid convertor cannot format %T", v)
	}
}

var slugRegexp = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

type slugConvertor struct{}

func (slugConvertor) Pattern() string { return `[-a-zA-Z0-9_]+` }

func (slugConvertor) Parse(s string) (any, error) { return s, nil }

func (slugConvertor) Format(v any) (string, error) {
	s := fmt.Sprint(v)
	if !slugRegexp.MatchString(s) {
		return "", fmt.Errorf("routing: %q is not a valid slug", s)
	}
	return s, nil
}
