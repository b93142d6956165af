// Package app assembles a router, a middleware chain and an error
// dispatcher into a servable application.
//
// An App is built up front: routes, mounts, middleware, error handlers
// and lifecycle hooks are registered before serving starts, and the
// registration surface is frozen on the first served request. A transport
// adapter (see package httpserver) drives the App by calling Startup,
// then Serve per connection, then Shutdown.
//
//	a := app.New()
//	a.Route("/users/{id:int}", getUser)
//	a.Use(mw)
//	a.OnStartup(openPool)
package app
