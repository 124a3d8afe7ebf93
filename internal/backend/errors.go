package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means no response was received from the backend.
	ErrTransport = errors.New("backend unreachable")
	// ErrMalformed means a response was received but could not be decoded.
	ErrMalformed = errors.New("malformed backend response")
)

// APIError is an application-level failure reported by the backend with a
// non-2xx status. Message is the server-provided error text and may be empty.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// ServerMessage returns the server-provided error text.
func (e *APIError) ServerMessage() string {
	return e.Message
}

// ServerMessage extracts the server-provided message from err, if any.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
