package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors classifying every failure the client can report.
var (
	ErrNetwork      = errors.New("network error")
	ErrServer       = errors.New("server error")
	ErrAuth         = errors.New("authentication failed")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrMalformedURL = errors.New("malformed URL")
)

// APIError wraps one of the sentinel kinds with the HTTP status and the
// server-provided message, if any. Both Kind and the underlying cause
// are reachable through errors.Is / errors.As.
type APIError struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

// NewAPIError builds an APIError of the given kind.
func NewAPIError(kind error, status int, message string, cause error) *APIError {
	return &APIError{
		Kind:    kind,
		Status:  status,
		Message: message,
		Err:     cause,
	}
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := e.Kind.Error()
	if e.Status != 0 {
		base += fmt.Sprintf(" (status=%d)", e.Status)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}

	return base
}

func (e *APIError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// KindForStatus maps a non-2xx HTTP status to an error kind.
func KindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuth
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400 && status < 500:
		return ErrValidation
	default:
		return ErrServer
	}
}
