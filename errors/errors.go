package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified openaikit error type.
type AppError struct {
	// Kind classifies the failure.
	Kind Kind `json:"kind"`
	// Message is a human-readable diagnostic.
	Message string `json:"message"`
	// Retryable indicates the retry controller may try the call again.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the response status for KindAPI errors (0 otherwise).
	HTTPStatus int `json:"http_status,omitempty"`
	// API is the structured error object reported by the server, if any.
	API *APIError `json:"api,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	msg := e.Message
	if e.HTTPStatus > 0 {
		msg = fmt.Sprintf("HTTP %d: %s", e.HTTPStatus, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by kind, so errors.Is(err, &AppError{Kind: KindIO}) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// --- Constructors ---

// Configuration creates an error for missing or invalid configuration.
func Configuration(message string) *AppError {
	return &AppError{Kind: KindConfiguration, Message: message}
}

// MissingField creates a configuration error for a required field that was not set.
func MissingField(field string) *AppError {
	return &AppError{
		Kind: KindConfiguration, Message: fmt.Sprintf("missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// IO creates an error for a local file that could not be read.
func IO(path string, cause error) *AppError {
	return &AppError{
		Kind: KindIO, Message: fmt.Sprintf("cannot read %s", path),
		Details: map[string]any{"path": path}, Cause: cause,
	}
}

// Transport creates a retryable connection-level error.
func Transport(cause error) *AppError {
	msg := "transport failure"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{Kind: KindTransport, Message: msg, Retryable: true, Cause: cause}
}

// Canceled creates a non-retryable transport error for a cancelled or expired context.
func Canceled(cause error) *AppError {
	return &AppError{Kind: KindTransport, Message: "request canceled", Cause: cause}
}

// Deserialization creates an error for a body that did not match the expected shape.
func Deserialization(cause error, body []byte) *AppError {
	e := &AppError{Kind: KindDeserialization, Message: "failed to deserialize response", Cause: cause}
	if len(body) > 0 {
		e.Details = map[string]any{"body": truncate(string(body), 512)}
	}
	return e
}

// Serialization creates an error for a request value that could not be encoded.
// Encoding failures share the deserialization kind: both are shape mismatches.
func Serialization(cause error) *AppError {
	return &AppError{Kind: KindDeserialization, Message: "failed to serialize request", Cause: cause}
}

// API creates an error from a structured error object returned by the server.
func API(status int, apiErr *APIError) *AppError {
	return &AppError{
		Kind: KindAPI, Message: apiErr.Message, HTTPStatus: status, API: apiErr,
		Retryable: IsRetryableStatus(status),
	}
}

// APIStatus creates an error for a non-success response whose body was not an error object.
func APIStatus(status int, body []byte) *AppError {
	msg := truncate(string(body), 512)
	if msg == "" {
		msg = "empty response body"
	}
	return &AppError{
		Kind: KindAPI, Message: msg, HTTPStatus: status,
		Retryable: IsRetryableStatus(status),
	}
}

// RetryExhausted wraps the last observed error once the retry budget is spent.
func RetryExhausted(attempts int, last error) *AppError {
	return &AppError{
		Kind: KindRetryExhausted, Message: fmt.Sprintf("gave up after %d attempts", attempts),
		Details: map[string]any{"attempts": attempts}, Cause: last,
	}
}

// InvalidArgument creates an error for an unsatisfiable request.
func InvalidArgument(message string) *AppError {
	return &AppError{Kind: KindInvalidArgument, Message: message}
}

// --- Inspection ---

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of the outermost AppError in the chain.
func KindOf(err error) (Kind, bool) {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsRetryable reports whether err is an AppError flagged as retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}

// AsAPIError returns the structured server error carried by err, searching
// through RetryExhausted wrappers.
func AsAPIError(err error) (*APIError, bool) {
	for err != nil {
		appErr, ok := AsAppError(err)
		if !ok {
			return nil, false
		}
		if appErr.API != nil {
			return appErr.API, true
		}
		err = appErr.Cause
	}
	return nil, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
