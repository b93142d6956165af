// Package web defines the data model shared by every stage of the dispatch
// pipeline: the connection scope, the request context, the response object,
// typed HTTP errors, and background tasks.
//
// # Scope
//
// A Scope describes one inbound connection as handed over by the transport:
// method, path, raw query string, and the ordered header pairs exactly as
// they arrived on the wire. Scopes are plain values; nested applications
// receive a rebuilt copy rather than a mutated original.
//
// # Request
//
// A Request wraps a Scope together with the body source and the per-request
// state. Path parameters are populated by the router at match time; query
// parameters are parsed lazily on first access. The body may be read whole
// via Body or consumed chunk by chunk via Stream, but not both:
//
//	data, err := req.Body(ctx)
//
//	src, err := req.Stream()
//	for {
//	    chunk, more, err := src.Next(ctx)
//	    ...
//	}
//
// # Response
//
// A Response carries a status code, a case-insensitive header multimap and
// either a buffered body or a streaming producer. Constructors cover the
// common content types:
//
//	return web.Text(http.StatusOK, "pong")
//	return web.JSON(http.StatusOK, map[string]any{"id": id})
//
// Background tasks attached to a response run strictly after the final body
// chunk has been handed to the transport:
//
//	resp, err := web.JSON(http.StatusCreated, user)
//	resp.AddTask("notify", func(ctx context.Context) error {
//	    return notify(ctx, user)
//	})
//
// # Errors
//
// Error is the structured failure type: status code, human-readable detail
// and optional extra headers. Handlers and middleware return it like any
// other error; the application maps it to a well-formed response:
//
//	return nil, web.NewError(http.StatusNotFound, "user not found")
package web
