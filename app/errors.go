package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/vitalvas/astra/web"
)

// ErrorHandler renders an error into a response. Returning nil falls back
// to the default rendering.
type ErrorHandler func(ctx context.Context, req *web.Request, err error) *web.Response

// kindHandler pairs an error predicate with its renderer.
type kindHandler struct {
	match   func(error) bool
	handler ErrorHandler
}

// As returns a predicate matching errors that unwrap to T, for use with
// HandleKind:
//
//	a.HandleKind(app.As[*json.SyntaxError](), handleBadJSON)
func As[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// HandleKind registers an error renderer for errors matching the
// predicate. Kind handlers are consulted before status handlers, most
// recently registered first, so a later registration can shadow an
// earlier, broader one.
func (a *App) HandleKind(match func(error) bool, handler ErrorHandler) error {
	if err := a.checkFrozen(); err != nil {
		return err
	}
	a.kindHandlers = append(a.kindHandlers, kindHandler{match: match, handler: handler})
	return nil
}

// HandleStatus registers an error renderer for web errors with the given
// status code, e.g. a branded 404 page.
func (a *App) HandleStatus(status int, handler ErrorHandler) error {
	if err := a.checkFrozen(); err != nil {
		return err
	}
	a.statusHandlers[status] = handler
	return nil
}

// handleError renders err: kind handlers first (most recent wins), then
// the status handler for a web error's code, then the default rendering.
func (a *App) handleError(ctx context.Context, req *web.Request, err error) *web.Response {
	for i := len(a.kindHandlers) - 1; i >= 0; i-- {
		kh := a.kindHandlers[i]
		if kh.match(err) {
			if resp := kh.handler(ctx, req, err); resp != nil {
				return resp
			}
			break
		}
	}

	var webErr *web.Error
	if errors.As(err, &webErr) {
		if handler, ok := a.statusHandlers[webErr.Status]; ok {
			if resp := handler(ctx, req, err); resp != nil {
				return resp
			}
		}
		return renderWebError(webErr)
	}

	return a.renderUnhandled(req, err)
}

// renderWebError is the default rendering for a structured error: a JSON
// {"detail": ...} body when the error carries structured data, plain text
// otherwise, plus the error's extra headers in either case.
func renderWebError(webErr *web.Error) *web.Response {
	var resp *web.Response
	if webErr.Data != nil {
		jsonResp, err := web.JSON(webErr.Status, map[string]any{"detail": webErr.Data})
		if err == nil {
			resp = jsonResp
		}
	}
	if resp == nil {
		resp = web.Text(webErr.Status, webErr.Detail)
	}
	if webErr.Headers != nil {
		for _, p := range webErr.Headers.Pairs() {
			resp.Headers.Add(p.Name, p.Value)
		}
	}
	return resp
}

// renderUnhandled renders an error no handler claimed. The message and
// stack are only disclosed in debug mode.
func (a *App) renderUnhandled(req *web.Request, err error) *web.Response {
	a.logger.Error("unhandled error",
		"method", req.Method(),
		"path", req.Path(),
		"error", err,
	)

	if a.debug {
		detail := fmt.Sprintf("%v\n\n%s", err, debug.Stack())
		return web.Text(http.StatusInternalServerError, detail)
	}

	return web.Text(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
