package web

import (
	"fmt"
	"net/http"
)

// Error is a structured HTTP failure: a status code, a human-readable
// detail and optional extra response headers (e.g. WWW-Authenticate on a
// 401). It propagates through middleware as an ordinary error value and is
// rendered by the application's error dispatcher.
//
// When Data is set, the default rendering is a JSON body of the form
// {"detail": <data>} instead of the plain text Detail.
type Error struct {
	Status  int
	Detail  string
	Data    any
	Headers *Headers
}

// NewError returns an Error for the given status. An empty detail defaults
// to the standard status text per RFC 9110 Section 15.
func NewError(status int, detail string) *Error {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &Error{Status: status, Detail: detail}
}

// NewDataError returns an Error whose default rendering is the JSON body
// {"detail": data}. The plain text detail still defaults to the status
// text for logging and Error().
func NewDataError(status int, data any) *Error {
	e := NewError(status, "")
	e.Data = data
	return e
}

// Errorf returns an Error with a formatted detail.
func Errorf(status int, format string, args ...any) *Error {
	return NewError(status, fmt.Sprintf(format, args...))
}

// WithHeader returns a copy of the error carrying an extra response header.
func (e *Error) WithHeader(name, value string) *Error {
	clone := *e
	if e.Headers != nil {
		clone.Headers = e.Headers.Clone()
	} else {
		clone.Headers = NewHeaders()
	}
	clone.Headers.Set(name, value)
	return &clone
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}
