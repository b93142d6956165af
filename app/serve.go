package app

import (
	"context"
	"net/http"
	"strconv"

	"github.com/vitalvas/astra/web"
)

// Serve handles one request end to end: dispatch through the middleware
// chain and router, render any error, transmit the response and then run
// its background tasks. The transport adapter calls Serve once per
// request; Serve only returns a non-nil error when transmission itself
// fails, at which point the connection is unusable.
func (a *App) Serve(ctx context.Context, scope *web.Scope, body web.BodySource, sender web.ResponseSender) error {
	req := web.NewRequest(scope, body)

	resp, err := a.Dispatch(ctx, req)
	if err != nil {
		resp = a.handleError(ctx, req, err)
	}
	if resp == nil {
		// A handler returned (nil, nil). Still answer with something
		// well-formed.
		resp = web.Text(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}

	if err := a.transmit(ctx, req, resp, sender); err != nil {
		return err
	}

	if tasks := resp.Tasks(); tasks != nil {
		// Tasks outlive the request: a client disconnect must not cancel
		// them mid-way.
		tasks.Run(context.WithoutCancel(ctx), a.logger)
	}
	return nil
}

// transmit writes the response start and body chunks to the sender.
func (a *App) transmit(ctx context.Context, req *web.Request, resp *web.Response, sender web.ResponseSender) error {
	headers := resp.Headers
	if headers == nil {
		headers = web.NewHeaders()
		resp.Headers = headers
	}

	if !resp.Streaming() && !headers.Has("Content-Length") && bodyAllowed(resp.Status) {
		headers.Set("Content-Length", strconv.Itoa(len(resp.Body())))
	}

	if err := sender.Start(ctx, resp.Status, headers); err != nil {
		return err
	}

	// HEAD responses carry the headers of the corresponding GET but no
	// body, per RFC 9110 Section 9.3.2.
	if req.Method() == http.MethodHead || !bodyAllowed(resp.Status) {
		return sender.Chunk(ctx, nil, true)
	}

	if resp.Streaming() {
		if err := resp.StreamBody()(ctx, func(p []byte) error {
			return sender.Chunk(ctx, p, false)
		}); err != nil {
			return err
		}
		return sender.Chunk(ctx, nil, true)
	}

	return sender.Chunk(ctx, resp.Body(), true)
}

// bodyAllowed reports whether the status code permits a response body,
// per RFC 9110 Section 6.4.1.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
