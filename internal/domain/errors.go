package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrDuplicateTitle   = errors.New("title already exists")
	ErrPasswordMismatch = errors.New("password does not match")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyResult      = errors.New("empty result")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnavailable      = errors.New("service unavailable")
)

// Error pairs one of the sentinel kinds above with a message that is safe
// to show to API clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewError returns an error that matches kind with errors.Is and carries msg
// as its public message.
func NewError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// PublicMessage returns the client-facing message attached to err, if any.
func PublicMessage(err error) (string, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Message, true
	}
	return "", false
}

// IsClassified reports whether err already belongs to a known kind and can
// cross a service boundary unchanged.
func IsClassified(err error) bool {
	for _, kind := range []error{
		ErrNotFound,
		ErrDuplicateEmail,
		ErrDuplicateTitle,
		ErrPasswordMismatch,
		ErrUnauthorized,
		ErrForbidden,
		ErrInvalidInput,
		ErrEmptyResult,
		ErrRateLimited,
		ErrUnavailable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
