// Package middleware provides request-processing middleware for astra
// applications: CORS, trusted host enforcement, response compression,
// panic recovery, request identifiers, rate limiting, Prometheus metrics
// and OpenTelemetry tracing.
//
// A middleware wraps a routing.Handler and returns a new one. The chain
// is applied so that the first middleware registered is the outermost:
// it sees the request first and the response last. A middleware
// short-circuits by returning a response without calling next, and
// post-processes by mutating the response next returned.
//
//	app.Use(middleware.RequestID(middleware.RequestIDConfig{}))
//	app.Use(mw)
package middleware
