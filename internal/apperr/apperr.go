// Package apperr defines the workflow error kinds shared by every handler.
// Handlers wrap these sentinels with context and the HTTP layer maps them to
// a status code plus a machine-readable kind in the response body.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrPrescriptionRequired = errors.New("prescription required")
	ErrAlreadyReviewed      = errors.New("already reviewed")
	ErrStateConflict        = errors.New("state conflict")
	ErrUpstream             = errors.New("upstream failure")
)

func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrPrescriptionRequired):
		return "prescription_required"
	case errors.Is(err, ErrAlreadyReviewed):
		return "already_reviewed"
	case errors.Is(err, ErrStateConflict):
		return "state_conflict"
	case errors.Is(err, ErrUpstream):
		return "upstream_failure"
	}
	return "internal"
}

func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrPrescriptionRequired):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyReviewed), errors.Is(err, ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// JSON writes the user-facing message together with the error kind so
// clients can branch without parsing message text.
func JSON(c echo.Context, err error) error {
	return c.JSON(Status(err), echo.Map{
		"error": err.Error(),
		"kind":  Kind(err),
	})
}
