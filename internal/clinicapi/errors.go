package clinicapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoSession is returned when an authenticated call has no token.
	ErrNoSession = errors.New("clinicapi: no active session")
	// ErrUnauthorized matches 401/403 responses.
	ErrUnauthorized = errors.New("clinicapi: unauthorized")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("clinicapi: not found")
	// ErrInvalidQuery is returned when required request parameters are missing.
	ErrInvalidQuery = errors.New("clinicapi: invalid query")
)

// TransportError wraps network failures, including context cancellation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("clinicapi: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("clinicapi: %s: backend returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is lets callers match status classes with errors.Is.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// LogicalError is a 2xx response whose body carries status:false.
type LogicalError struct {
	Op      string
	Message string
}

func (e *LogicalError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clinicapi: %s: request rejected", e.Op)
	}
	return fmt.Sprintf("clinicapi: %s: %s", e.Op, e.Message)
}

// BackendMessage extracts the backend-provided message from a logical
// failure, or "" if err is not one.
func BackendMessage(err error) string {
	var logical *LogicalError
	if errors.As(err, &logical) {
		return logical.Message
	}
	return ""
}

// StatusCode maps an error to the HTTP status a proxy should answer with.
func StatusCode(err error) int {
	var httpErr *HTTPError
	var logical *LogicalError
	var transport *TransportError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.As(err, &httpErr):
		if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			return httpErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &logical):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
