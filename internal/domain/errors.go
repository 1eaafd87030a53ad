package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// row does not exist in the store.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails a business
// precondition (missing field, malformed date, credential already suspended).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrNoSession is returned by the query invoker when the caller has no
// session token. No remote call is attempted.
// Handlers should map this to HTTP 401.
var ErrNoSession = errors.New("no active session")

// ErrStaleRegistry is returned when the suspension registry could not be
// refreshed up to the version a caller asked for.
var ErrStaleRegistry = errors.New("suspension registry is behind the requested version")

// RemoteExecutionError carries a failure reported by the query endpoint, or a
// transport failure on the way there. Message is passed through verbatim.
type RemoteExecutionError struct {
	Message string
	Err     error
}

func (e *RemoteExecutionError) Error() string {
	return "remote execution: " + e.Message
}

func (e *RemoteExecutionError) Unwrap() error {
	return e.Err
}

// DocumentGenerationError reports a receipt that could not be rendered or
// stored. The mutation that triggered it has already been committed.
type DocumentGenerationError struct {
	// Stage is "render", "upload" or "persist".
	Stage string
	Err   error
}

func (e *DocumentGenerationError) Error() string {
	return fmt.Sprintf("document generation (%s): %v", e.Stage, e.Err)
}

func (e *DocumentGenerationError) Unwrap() error {
	return e.Err
}
