package httpserver

import (
	"context"
	"io"
	"net/http"

	"golang.org/x/net/http/httpguts"

	"github.com/vitalvas/astra/web"
)

// ScopeFromRequest translates an incoming net/http request into a
// connection scope. Header order is preserved as net/http delivers it.
func ScopeFromRequest(r *http.Request, scopeType web.ScopeType) *web.Scope {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	headers := make([]web.HeaderPair, 0, len(r.Header)+1)
	headers = append(headers, web.HeaderPair{Name: "Host", Value: r.Host})
	for name, values := range r.Header {
		for _, v := range values {
			headers = append(headers, web.HeaderPair{Name: name, Value: v})
		}
	}

	return &web.Scope{
		Type:     scopeType,
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Scheme:   scheme,
		Headers:  headers,
		Server:   localAddr(r),
		Client:   r.RemoteAddr,
	}
}

func localAddr(r *http.Request) string {
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(interface{ String() string }); ok {
		return addr.String()
	}
	return ""
}

// requestBody adapts an io.Reader into a chunked body source.
type requestBody struct {
	r    io.Reader
	buf  []byte
	done bool
}

func newRequestBody(r io.Reader) *requestBody {
	return &requestBody{r: r, buf: make([]byte, 32*1024)}
}

func (b *requestBody) Next(ctx context.Context) ([]byte, bool, error) {
	if b.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	n, err := b.r.Read(b.buf)
	chunk := b.buf[:n]

	if err == io.EOF {
		b.done = true
		return chunk, false, nil
	}
	if err != nil {
		b.done = true
		return chunk, false, err
	}
	return chunk, true, nil
}

// responseSender adapts an http.ResponseWriter into a chunk sink. Header
// names and values are validated per RFC 9110 before they reach the wire.
type responseSender struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newResponseSender(w http.ResponseWriter) *responseSender {
	flusher, _ := w.(http.Flusher)
	return &responseSender{w: w, flusher: flusher}
}

func (s *responseSender) Start(_ context.Context, status int, headers *web.Headers) error {
	if s.started {
		return nil
	}
	s.started = true

	h := s.w.Header()
	for _, p := range headers.Pairs() {
		if !httpguts.ValidHeaderFieldName(p.Name) || !httpguts.ValidHeaderFieldValue(p.Value) {
			continue
		}
		h.Add(p.Name, p.Value)
	}

	s.w.WriteHeader(status)
	return nil
}

func (s *responseSender) Chunk(ctx context.Context, p []byte, final bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p) > 0 {
		if _, err := s.w.Write(p); err != nil {
			return err
		}
	}
	// Intermediate chunks flush so server-sent events and similar
	// incremental bodies reach the client promptly.
	if !final && s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
