package b2chat

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed indicates bearer token acquisition failed
	ErrAuthFailed = errors.New("upstream authentication failed")

	// ErrMissingCredentials indicates the client was built without username/password
	ErrMissingCredentials = errors.New("missing upstream credentials")
)

// APIError is a non-2xx response from the upstream API. The raw body is
// kept for diagnostics; bodies are small on error responses.
type APIError struct {
	StatusCode int
	Endpoint   string
	RawBody    string
}

// Error returns formatted error message
func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API error: %s returned %d: %s", e.Endpoint, e.StatusCode, e.RawBody)
}

// Retryable reports whether the call may succeed on a later attempt
// (throttled or server-side failure).
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// NewAPIError creates an APIError for the given endpoint and response.
func NewAPIError(endpoint string, statusCode int, body string) *APIError {
	return &APIError{StatusCode: statusCode, Endpoint: endpoint, RawBody: body}
}

// SchemaError indicates an upstream record or response did not match the
// expected shape.
type SchemaError struct {
	Endpoint string
	Field    string
	Err      error
}

// Error returns formatted error message
func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema error on %s: field %q: %v", e.Endpoint, e.Field, e.Err)
	}
	return fmt.Sprintf("schema error on %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NewSchemaError creates a SchemaError.
func NewSchemaError(endpoint, field string, err error) *SchemaError {
	return &SchemaError{Endpoint: endpoint, Field: field, Err: err}
}
