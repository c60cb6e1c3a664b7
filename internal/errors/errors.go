package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the booking lifecycle. Handlers map these to HTTP
// status codes with HTTPStatus; services wrap them with context via %w.
var (
	ErrUnauthenticated      = errors.New("missing or invalid credential")
	ErrForbidden            = errors.New("operation is forbidden for user")
	ErrNotFound             = errors.New("booking not found")
	ErrInvalidState         = errors.New("transition not allowed from current status")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInsufficientCapacity = errors.New("insufficient seats available")
	ErrUpstreamUnavailable  = errors.New("upstream service unavailable")
	ErrConflict             = errors.New("concurrent modification conflict")
	ErrFlightNotFound       = errors.New("flight not found")
	ErrUserNotFound         = errors.New("user not found")
)

// HTTPStatus returns the status code for an error from the taxonomy above.
// Unknown errors map to 500. Flight/user lookups failing during create or
// confirm surface as 400, mirroring the booking API contract.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInsufficientCapacity),
		errors.Is(err, ErrUpstreamUnavailable),
		errors.Is(err, ErrFlightNotFound),
		errors.Is(err, ErrUserNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CompensationError reports a saga step whose compensating action also
// failed. Both failures must stay visible for operator reconciliation,
// so Unwrap exposes the original cause and the message carries both.
type CompensationError struct {
	Cause        error
	Compensation error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("saga step failed: %v; compensation also failed: %v", e.Cause, e.Compensation)
}

func (e *CompensationError) Unwrap() error {
	return e.Cause
}
