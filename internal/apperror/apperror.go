// Package apperror defines the application's error taxonomy.
//
// Services return these sentinels wrapped in an *AppError; the HTTP layer
// maps them to status codes or redirects in exactly one place. Note there is
// no "forbidden" sentinel: a delete attempt on someone else's post must be
// indistinguishable from "post does not exist", so ownership failures are
// reported as ErrNotFound.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyLiked    = errors.New("already liked")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // sentinel from the list above
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// UsernameTaken reports a registration or rename against an occupied username.
func UsernameTaken(username string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("username %q is already taken", username),
		Field:   "username",
	}
}

// AlreadyLiked reports a duplicate like attempt. The like policy is reject,
// not idempotent no-op: callers can tell a first like from a repeat.
func AlreadyLiked(username, postID string) *AppError {
	return &AppError{
		Err:     ErrAlreadyLiked,
		Message: fmt.Sprintf("%s has already liked post %s", username, postID),
	}
}

// Unauthenticated signals that a protected operation was attempted without a
// valid session. Handlers translate this into a redirect to the login entry
// point rather than an error page.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
