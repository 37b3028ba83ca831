// Package apierr maps the error taxonomy of spec.md §7 onto a small set
// of sentinel errors the HTTP surface inspects with errors.Is/errors.As
// to choose a status code, instead of passing status codes through
// every call chain by hand.
package apierr

import "errors"

var (
	// ErrValidation is input validation failure: reject with 4xx, never
	// logged as an error.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is a precondition failure such as an operation already
	// active for a variant: reject with 409.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is a missing resource: reject with 404.
	ErrNotFound = errors.New("not found")
	// ErrSecurity is path traversal, a shell metacharacter, or an invalid
	// scan root: always rejected and audit-logged at warning.
	ErrSecurity = errors.New("rejected for security")
)

// Validation wraps msg as an ErrValidation.
func Validation(msg string) error { return wrap(ErrValidation, msg) }

// Conflict wraps msg as an ErrConflict.
func Conflict(msg string) error { return wrap(ErrConflict, msg) }

// NotFound wraps msg as an ErrNotFound.
func NotFound(msg string) error { return wrap(ErrNotFound, msg) }

// Security wraps msg as an ErrSecurity.
func Security(msg string) error { return wrap(ErrSecurity, msg) }

type wrapped struct {
	sentinel error
	msg      string
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.sentinel }

func wrap(sentinel error, msg string) error {
	return &wrapped{sentinel: sentinel, msg: msg}
}

// StatusCode picks the HTTP status for err, defaulting to 500 for
// anything not matching a known sentinel.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrSecurity):
		return 400
	case errors.Is(err, ErrConflict):
		return 409
	case errors.Is(err, ErrNotFound):
		return 404
	default:
		return 500
	}
}
