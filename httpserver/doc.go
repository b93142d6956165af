// Package httpserver bridges an astra application onto net/http: it
// translates incoming requests into connection scopes, streams request
// and response bodies across the boundary, upgrades websocket requests,
// and manages the server lifecycle around the application's startup and
// shutdown hooks.
package httpserver
