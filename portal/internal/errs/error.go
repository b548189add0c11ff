package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("session expired, please sign in again")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("book is not available")
	ErrDecode       = errors.New("invalid JSON from API")
	ErrNoSession    = errors.New("no session")
)

// APIError is a non-2xx answer of the library API.
type APIError struct {
	Status  int
	Message string
}

func NewAPIError(status int, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("API error: HTTP %d", status)
	}
	return &APIError{Status: status, Message: message}
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Retryable reports whether the failure is on the API side rather than in the request.
func (e *APIError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError
}

type validationError struct {
	err error
}

func (e validationError) Error() string { return e.err.Error() }

func (e validationError) Unwrap() []error { return []error{ErrValidation, e.err} }

// Validation marks err as a local input problem that never reached the API.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return validationError{err: err}
}

func Validationf(format string, args ...any) error {
	return Validation(fmt.Errorf(format, args...))
}
