package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure taxonomy of the write path. Handlers match
// them with errors.Is and map them to HTTP statuses via HTTPStatus.
var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a duplicate relationship or a concurrent-mutation race
	// detected by a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrInvalidOperation means the request is nonsensical, such as a
	// self-follow or liking your own post.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrUnavailable means the underlying store or cache did not respond
	// within its timeout.
	ErrUnavailable = errors.New("unavailable")
)

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// InvalidOperation wraps ErrInvalidOperation with a formatted message.
func InvalidOperation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidOperation)
}

// Unavailable wraps ErrUnavailable with a formatted message.
func Unavailable(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnavailable)
}

// HTTPStatus maps a taxonomy error to its HTTP status code. Unknown errors
// map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
