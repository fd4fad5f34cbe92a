// Package apperror defines the error taxonomy surfaced to callers:
// validation failures, duplicates, missing records and no-session.
// Storage failures are not wrapped here; they propagate as plain
// wrapped errors from the backend.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate")
	ErrValidation = errors.New("validation error")
	ErrNoSession  = errors.New("no active session")
)

type AppError struct {
	Err     error  // sentinel for errors.Is checks
	Message string // human-readable message
	Field   string // optional field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %d not found", resource, id),
	}
}

// DuplicateEmail signals a registration attempt with an email that is
// already taken (compared case-insensitively).
func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: fmt.Sprintf("email %q already registered", email),
		Field:   "email",
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NoSession signals an operation that needs a logged-in user while the
// session pointer is empty.
func NoSession() *AppError {
	return &AppError{
		Err:     ErrNoSession,
		Message: "no user is logged in",
	}
}
