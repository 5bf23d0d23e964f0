package board

import (
	"errors"
	"fmt"
	"net/http"

	"kanban/internal/storage"
)

// Sentinel errors. Match with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("at least one list must exist")
	ErrUnauthenticated    = errors.New("no user is signed in")
	ErrConflict           = errors.New("another change to this board is in progress")
	ErrBackendUnavailable = storage.ErrUnavailable
)

// ValidationError reports rejected input for one field. It never reaches a backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) StatusCode() int      { return http.StatusBadRequest }

// NotFoundError reports a list or project id that does not resolve for the user.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string        { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
func (e *NotFoundError) StatusCode() int      { return http.StatusNotFound }

func listNotFound(id string) error    { return &NotFoundError{Kind: "list", ID: id} }
func projectNotFound(id string) error { return &NotFoundError{Kind: "project", ID: id} }

// StatusCode maps a store error to an HTTP status.
func StatusCode(err error) int {
	var coded interface{ StatusCode() int }
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &coded):
		return coded.StatusCode()
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvariantViolation), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// backendError classifies a failed persistence call on list listID.
func backendError(op, listID string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, listNotFound(listID))
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
	}
}
