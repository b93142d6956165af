package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// StreamFunc produces a lazy, finite, non-restartable sequence of body
// chunks by calling write for each chunk in order. Returning an error
// aborts the stream; the connection is left in an undefined state since
// the response start may already be on the wire.
type StreamFunc func(ctx context.Context, write func(p []byte) error) error

// Response is the wire-ready outcome of a request: status code, header
// multimap and either a buffered body or a streaming producer, plus the
// background tasks to run after transmission.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Headers holds the response headers. Keys are case-insensitive,
	// Set is last-write-wins.
	Headers *Headers

	body   []byte
	stream StreamFunc
	tasks  *Tasks
}

// NewResponse returns a buffered response with the given status and body.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		Status:  status,
		Headers: NewHeaders(),
		body:    body,
	}
}

// Text returns a plain text response.
func Text(status int, body string) *Response {
	resp := NewResponse(status, []byte(body))
	resp.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	return resp
}

// HTML returns an HTML response.
func HTML(status int, body string) *Response {
	resp := NewResponse(status, []byte(body))
	resp.Headers.Set("Content-Type", "text/html; charset=utf-8")
	return resp
}

// JSON encodes v and returns an application/json response. The encode
// error is returned instead of a half-built response so handlers can
// propagate it directly:
//
//	return web.JSON(http.StatusOK, user)
func JSON(status int, v any) (*Response, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("web: encode json response: %w", err)
	}
	// Encoder appends a trailing newline; keep it, matching the buffered
	// writer behaviour clients already see from net/http handlers.
	resp := NewResponse(status, buf.Bytes())
	resp.Headers.Set("Content-Type", "application/json")
	return resp, nil
}

// Redirect returns a redirect response per RFC 9110 Section 15.4. The
// status should be in the 3xx range; 307/308 preserve the request method.
func Redirect(status int, location string) *Response {
	resp := NewResponse(status, nil)
	resp.Headers.Set("Location", location)
	return resp
}

// Stream returns a streaming response whose body is produced by fn. A
// streaming response carries no Content-Length. A nil fn yields an empty
// stream, so the response still transmits as chunked with no body.
func Stream(status int, contentType string, fn StreamFunc) *Response {
	if fn == nil {
		fn = func(context.Context, func(p []byte) error) error { return nil }
	}
	resp := &Response{
		Status:  status,
		Headers: NewHeaders(),
		stream:  fn,
	}
	if contentType != "" {
		resp.Headers.Set("Content-Type", contentType)
	}
	return resp
}

// Body returns the buffered body, or nil for streaming responses.
func (r *Response) Body() []byte { return r.body }

// SetBody replaces the buffered body and clears any streaming producer.
// Used by body-transforming middleware such as compression.
func (r *Response) SetBody(body []byte) {
	r.body = body
	r.stream = nil
}

// SetStream replaces the streaming producer and clears any buffered body.
func (r *Response) SetStream(fn StreamFunc) {
	r.stream = fn
	r.body = nil
}

// Streaming reports whether the body is produced lazily.
func (r *Response) Streaming() bool { return r.stream != nil }

// StreamBody returns the streaming producer, or nil.
func (r *Response) StreamBody() StreamFunc { return r.stream }

// SetCookie appends a Set-Cookie header for the given cookie.
func (r *Response) SetCookie(c *http.Cookie) {
	if v := c.String(); v != "" {
		r.Headers.Add("Set-Cookie", v)
	}
}

// DeleteCookie appends a Set-Cookie header that expires the named cookie.
func (r *Response) DeleteCookie(name, path, domain string) {
	if path == "" {
		path = "/"
	}
	r.SetCookie(&http.Cookie{
		Name:   name,
		Path:   path,
		Domain: domain,
		MaxAge: -1,
	})
}

// AddTask appends a background task to run after the response has been
// fully handed to the transport. Tasks run sequentially in the order
// added; see Tasks.
func (r *Response) AddTask(name string, fn TaskFunc) {
	if r.tasks == nil {
		r.tasks = &Tasks{}
	}
	r.tasks.Add(name, fn)
}

// Tasks returns the attached background tasks, or nil.
func (r *Response) Tasks() *Tasks { return r.tasks }
