package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., email already registered
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")
)

// APIError is a domain error carrying the machine-readable code and optional
// details exposed in the response envelope. It wraps one of the sentinel
// errors above, which drives the HTTP status mapping.
type APIError struct {
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *APIError) Error() string { return e.Message }
func (e *APIError) Unwrap() error { return e.Err }

// E builds an APIError classified by the given sentinel.
func E(sentinel error, code, message string) *APIError {
	return &APIError{Code: code, Message: message, Err: sentinel}
}

// ED is E with details attached (e.g. password policy failures).
func ED(sentinel error, code, message string, details interface{}) *APIError {
	return &APIError{Code: code, Message: message, Details: details, Err: sentinel}
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}

	// pgx unique constraint violations surface as conflicts
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// CodeFromError extracts the machine-readable code, falling back to a generic
// one per error class so the envelope always carries a code.
func CodeFromError(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return apiErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrValidation):
		return "invalid_request"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "internal_error"
}

// DetailsFromError extracts attached details, if any.
func DetailsFromError(err error) interface{} {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Details
	}
	return nil
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
