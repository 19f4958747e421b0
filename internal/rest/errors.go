package rest

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated marks 401 responses and missing credentials.
var ErrUnauthenticated = errors.New("rest: unauthenticated")

// ErrNotFound marks 404 responses.
var ErrNotFound = errors.New("rest: not found")

// APIError is a non-2xx response with whatever message the server supplied.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rest: status %d", e.Status)
	}
	return fmt.Sprintf("rest: status %d: %s", e.Status, e.Message)
}

// Is maps well-known statuses onto sentinel errors so callers can use
// errors.Is without inspecting status codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == 401
	case ErrNotFound:
		return e.Status == 404
	}
	return false
}
