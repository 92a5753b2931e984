package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a version was not found for the requesting
	// owner. It deliberately collapses "does not exist" and "belongs to a
	// different user" so responses never leak document existence.
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input (malformed identifiers,
	// missing required fields).
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found or unauthorized")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrChatAssociation marks an invalid chat reference on a version
	// write. It is non-fatal: callers log it and drop the association
	// instead of failing the operation.
	ErrChatAssociation = errors.New("chat association invalid")

	// ErrGeneration marks a text-generation failure. It is surfaced to
	// clients as a structured error event on the stream, never as a
	// transport failure.
	ErrGeneration = errors.New("generation failed")
)

// SlugConflictError is returned when publish settings would assign a slug
// already claimed by a different document's current version for the same
// owner.
type SlugConflictError struct {
	Slug       string // the contested slug
	DocumentID string // identity of the document already holding it
}

func (e *SlugConflictError) Error() string {
	return "slug '" + e.Slug + "' is already in use"
}

func (e *SlugConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *SlugConflictError) Is(target error) bool {
	return target == ErrConflict
}
