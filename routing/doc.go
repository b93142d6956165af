// Package routing implements pattern compilation and request dispatch for
// matching inbound connections to their handlers.
//
// # Patterns
//
// Route patterns are plain paths with typed parameters in curly braces:
//
//	/users/{user_id:int}
//	/files/{filepath:path}
//	/posts/{slug}
//
// A parameter without a type tag defaults to str, matching any run of
// non-slash characters. Patterns compile once at registration time into an
// anchored matcher, an ordered parameter table and a reverse-format
// template; compiled routes are immutable afterwards.
//
// # Convertors
//
// Each type tag names a Convertor: a parse/format pair that decodes the
// matched segment into a typed value and formats values back into URL
// segments for reverse lookup. Built-in tags are str, path, int, float,
// uuid and slug. Custom tags are registered process-wide:
//
//	routing.RegisterConvertor("ymd", dateConvertor{})
//
// The registry is append-only and must be fully populated before serving
// starts; registration is only visible to routes compiled afterwards.
//
// # Routing units
//
// A Router holds an ordered list of routing units and dispatches to the
// first full match, so registration order is the tie-break between
// overlapping patterns:
//
//	r := routing.NewRouter()
//	r.Add(userRoute, adminMount, apiHost)
//
// Route matches method and path and invokes a handler. Mount matches a
// path prefix, rewrites the child scope to the remaining suffix and
// delegates the whole request to a nested application. Host delegates
// based on the Host header. WebSocketRoute matches websocket scopes and
// hands the upgraded connection to its endpoint.
//
// # Reverse lookup
//
// Named routes can be turned back into concrete paths:
//
//	path, err := r.URLPathFor("user_detail", map[string]any{"user_id": 42})
package routing
