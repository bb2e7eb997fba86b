package wekan

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a named resource (board, list) does not exist
// upstream. Not retried: retrying will not make a name exist.
var ErrNotFound = errors.New("not found")

// AuthError indicates Wekan rejected the configured credentials.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("wekan authentication failed: %d - %s", e.StatusCode, e.Body)
}

// RequestError is returned after the retry budget for an API call is
// exhausted. It carries the last observed status code and body.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("wekan request %s %s failed: %d - %s", e.Method, e.Path, e.StatusCode, e.Body)
}
