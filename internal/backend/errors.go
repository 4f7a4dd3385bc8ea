package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnsupportedKind is returned by Details for kinds without a detail endpoint.
var ErrUnsupportedKind = errors.New("backend: unsupported kind")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend: %s: %s (%d): %s", e.Op, e.Code, e.Status, msg)
	}
	return fmt.Sprintf("backend: %s: status %d: %s", e.Op, e.Status, msg)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Message extracts the most useful human-readable text from err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
