package web

import (
	"context"
	"errors"
	"net/url"
)

// ErrBodyConsumed is returned when Body and Stream are mixed on the same
// request, or when either is entered twice in a conflicting mode. The two
// access modes are mutually exclusive.
var ErrBodyConsumed = errors.New("web: request body already consumed")

// body consumption modes.
const (
	bodyUnread = iota
	bodyBuffered
	bodyStreaming
)

// bodyState tracks body consumption across rebuilt request copies, so a
// nested application sharing the same connection sees the same cursor.
type bodyState struct {
	src  BodySource
	mode int
	buf  []byte
	err  error
}

// Request is the per-request context: the scope, typed path parameters
// populated by the router, lazily parsed query parameters, the body
// cursor and a free-form state map for inter-middleware communication.
//
// A Request is owned by a single logical task; it is not safe for
// concurrent use. Rebuilt copies produced at mount boundaries share the
// body cursor and state map with the original.
type Request struct {
	scope      *Scope
	body       *bodyState
	pathParams map[string]any
	query      url.Values
	queryDone  bool
	state      map[string]any
}

// NewRequest builds a request for the given scope and body source. A nil
// body is treated as an empty one.
func NewRequest(scope *Scope, body BodySource) *Request {
	if body == nil {
		body = NoBody
	}
	return &Request{
		scope: scope,
		body:  &bodyState{src: body},
		state: make(map[string]any),
	}
}

// Scope returns the connection scope this request was built from.
func (r *Request) Scope() *Scope { return r.scope }

// Method returns the request method.
func (r *Request) Method() string { return r.scope.Method }

// Path returns the request path as seen at the current mount level.
func (r *Request) Path() string { return r.scope.Path }

// Header returns the first value of the named request header.
func (r *Request) Header(name string) string { return r.scope.Header(name) }

// Param returns the typed value of a path parameter extracted by the
// router, and whether it exists.
func (r *Request) Param(name string) (any, bool) {
	v, ok := r.pathParams[name]
	return v, ok
}

// PathParams returns all extracted path parameters. The map must not be
// modified.
func (r *Request) PathParams() map[string]any {
	return r.pathParams
}

// Query returns the first value of a query parameter. The query string is
// parsed on first access; malformed input yields an empty set.
func (r *Request) Query(name string) string {
	return r.QueryValues().Get(name)
}

// QueryValues returns the parsed query parameters.
func (r *Request) QueryValues() url.Values {
	if !r.queryDone {
		values, err := url.ParseQuery(r.scope.RawQuery)
		if err != nil {
			values = url.Values{}
		}
		r.query = values
		r.queryDone = true
	}
	return r.query
}

// State returns the free-form per-request state map, shared across mount
// boundaries within the same request.
func (r *Request) State() map[string]any { return r.state }

// Body reads and returns the whole request body. Repeated calls return the
// same bytes. Body fails with ErrBodyConsumed once Stream has been entered.
func (r *Request) Body(ctx context.Context) ([]byte, error) {
	st := r.body
	switch st.mode {
	case bodyStreaming:
		return nil, ErrBodyConsumed
	case bodyBuffered:
		return st.buf, st.err
	}
	st.mode = bodyBuffered
	for {
		chunk, more, err := st.src.Next(ctx)
		st.buf = append(st.buf, chunk...)
		if err != nil {
			st.err = err
			return st.buf, err
		}
		if !more {
			return st.buf, nil
		}
	}
}

// Stream returns the body as a chunk source for incremental consumption.
// It fails with ErrBodyConsumed once Body has been called or a previous
// Stream was handed out; the sequence is not restartable.
func (r *Request) Stream() (BodySource, error) {
	st := r.body
	if st.mode != bodyUnread {
		return nil, ErrBodyConsumed
	}
	st.mode = bodyStreaming
	return st.src, nil
}

// WithScope returns a copy of the request bound to the given scope. The
// body cursor and state map remain shared; path parameters carry over.
// Used by mounts to hand a rewritten scope to a nested application.
func (r *Request) WithScope(scope *Scope) *Request {
	clone := *r
	clone.scope = scope
	return &clone
}

// WithPathParams returns a copy of the request with the given parameters
// merged over the existing ones. The existing map is never mutated.
func (r *Request) WithPathParams(params map[string]any) *Request {
	clone := *r
	merged := make(map[string]any, len(r.pathParams)+len(params))
	for k, v := range r.pathParams {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	clone.pathParams = merged
	return &clone
}
