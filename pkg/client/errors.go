package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the API.
const (
	CodeBadRequest      = "bad_request"
	CodeInvalidInput    = "invalid_input"
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeTimeout         = "timeout"
	CodeEmbeddingFailed = "embedding_failed"
	CodeRetrievalFailed = "retrieval_failed"
	CodeInternalError   = "internal_error"
)

// ErrNotFound matches an APIError with status 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx API response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("footage api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("footage api: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// StreamError is an error frame received on a search stream.
type StreamError struct {
	Text string
}

func (e *StreamError) Error() string { return "footage stream: " + e.Text }
