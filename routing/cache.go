package routing

import (
	"regexp"
	"sync"
)

// Route path and host expressions are compiled once per distinct pattern
// and shared process-wide. Registering the same pattern on several
// routers, as host-split applications do, reuses the compiled form. The
// set of patterns is fixed once assembly finishes, so the map never needs
// eviction.
var compiledExprs sync.Map

func compileRegexp(expr string) (*regexp.Regexp, error) {
	if v, ok := compiledExprs.Load(expr); ok {
		return v.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	// Concurrent registrations may race here. Keep whichever landed
	// first so every caller sees the same instance.
	actual, _ := compiledExprs.LoadOrStore(expr, re)
	return actual.(*regexp.Regexp), nil
}
