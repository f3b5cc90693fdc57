// Package llmerr defines the error kinds shared by the schema, chatctx,
// transport, and facade packages. Each kind wraps an underlying cause so
// callers can use errors.Is / errors.As to inspect it, following the
// wrapped-sentinel style used by the teacher's retry middleware
// (ErrRetryExhausted) and the exception hierarchy of the original
// general_context implementation (schema_exception, validation_exception).
package llmerr

import (
	"errors"
	"fmt"
)

// Sentinel errors usable with errors.Is for coarse-grained kind checks.
var (
	// ErrSchema marks a SchemaError: a missing/malformed schema document,
	// a failing structural validation, or an unsupported provider.
	ErrSchema = errors.New("llmbridge: schema error")

	// ErrValidation marks a ValidationError: a parameter out of range, an
	// unknown role, multimodal used against an unsupporting schema, a
	// missing required request field, or an unknown model under strict
	// validation.
	ErrValidation = errors.New("llmbridge: validation error")

	// ErrTransport marks a TransportError: a network failure, TLS failure,
	// non-2xx status, timeout, or cancellation.
	ErrTransport = errors.New("llmbridge: transport error")

	// ErrResponseShape marks a ResponseShapeError: a successful transport
	// whose response body does not match the schema's extraction paths.
	ErrResponseShape = errors.New("llmbridge: response shape error")
)

// SchemaError reports a problem with a schema document itself: missing
// file, malformed JSON, or a structural validation failure.
type SchemaError struct {
	Provider string
	Reason   string
	Cause    error
}

func (e *SchemaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("schema %q: %s: %v", e.Provider, e.Reason, e.Cause)
	}
	return fmt.Sprintf("schema %q: %s", e.Provider, e.Reason)
}

func (e *SchemaError) Unwrap() error { return errors.Join(ErrSchema, e.Cause) }

// NewSchemaError builds a SchemaError for provider with the given reason
// and optional wrapped cause.
func NewSchemaError(provider, reason string, cause error) *SchemaError {
	return &SchemaError{Provider: provider, Reason: reason, Cause: cause}
}

// ValidationError reports a synchronous contract violation raised by a
// Context mutation method or by build_request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError naming the offending field
// (empty when the violation is not field-scoped, e.g. "empty message list").
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TransportError reports a failure at or below the HTTP sink: network
// failure, non-2xx status, timeout, or cancellation. StatusCode is zero
// when the request never reached the server. Message carries the
// provider's error string extracted via the schema's error_path when one
// was found, preferring it over Body per spec §9's open-question
// decision; Body always holds the raw response bytes, if any.
type TransportError struct {
	StatusCode int
	Message    string
	Body       string
	Cancelled  bool
	Timeout    bool
	Cause      error
}

func (e *TransportError) Error() string {
	switch {
	case e.Cancelled:
		return "transport: request cancelled"
	case e.Timeout:
		return "transport: request timed out"
	case e.Message != "":
		return fmt.Sprintf("transport: status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("transport: status %d: %s", e.StatusCode, e.Body)
	case e.Cause != nil:
		return fmt.Sprintf("transport: %v", e.Cause)
	default:
		return "transport: unknown error"
	}
}

func (e *TransportError) Unwrap() error { return errors.Join(ErrTransport, e.Cause) }

// Cancelled reports a TransportError representing a cooperative cancellation.
func Cancelled() *TransportError {
	return &TransportError{Cancelled: true}
}

// ResponseShapeError reports that a successfully transported response body
// did not match the schema's extraction paths.
type ResponseShapeError struct {
	Path   []any
	Reason string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("response shape: path %v: %s", e.Path, e.Reason)
}

func (e *ResponseShapeError) Unwrap() error { return ErrResponseShape }

// NewResponseShapeError builds a ResponseShapeError naming the path that
// failed to resolve and why.
func NewResponseShapeError(path []any, reason string) *ResponseShapeError {
	return &ResponseShapeError{Path: path, Reason: reason}
}
