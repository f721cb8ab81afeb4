package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of live feed errors
type ErrorType int

const (
	ErrorUnknown ErrorType = iota
	ErrorRateLimited
	ErrorNotFound
	ErrorUnauthorized
	ErrorBadRequest
	ErrorServerError
	ErrorBadPayload
)

// Error represents a live feed error with its HTTP status. Errors are
// never cached; the next caller repeats the upstream call.
type Error struct {
	Type       ErrorType
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream: %s (status %d)", e.Message, e.StatusCode)
	}
	return "upstream: " + e.Message
}

// ClassifyStatus builds an Error from a non-200 upstream response status.
func ClassifyStatus(status int) *Error {
	e := &Error{StatusCode: status, Type: ErrorUnknown, Message: "live feed request failed"}

	switch status {
	case http.StatusTooManyRequests:
		e.Type = ErrorRateLimited
		e.Message = "rate limited by live feed"
	case http.StatusNotFound:
		e.Type = ErrorNotFound
		e.Message = "resource not found"
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Type = ErrorUnauthorized
		e.Message = "live feed rejected credentials"
	case http.StatusBadRequest:
		e.Type = ErrorBadRequest
		e.Message = "bad request to live feed"
	default:
		if status >= 500 {
			e.Type = ErrorServerError
			e.Message = "live feed server error"
		}
	}
	return e
}

// BadPayload builds an Error for unparseable upstream responses.
func BadPayload(detail string) *Error {
	return &Error{Type: ErrorBadPayload, Message: "unreadable payload: " + detail}
}

// AsError unwraps an upstream *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// IsNotFound reports whether the error is an upstream 404.
func IsNotFound(err error) bool {
	ue, ok := AsError(err)
	return ok && ue.Type == ErrorNotFound
}
