package errors

// Kind classifies an AppError.
type Kind string

// Local failures (never retried)
const (
	// KindConfiguration indicates missing or invalid client configuration.
	KindConfiguration Kind = "CONFIGURATION"
	// KindIO indicates a local file could not be opened or read.
	KindIO Kind = "IO"
	// KindInvalidArgument indicates the caller passed an unsatisfiable combination.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	// KindDeserialization indicates a response did not match the expected shape.
	KindDeserialization Kind = "DESERIALIZATION"
)

// Remote failures
const (
	// KindTransport indicates a connection-level failure (refused, reset, timeout).
	KindTransport Kind = "TRANSPORT"
	// KindAPI indicates the server reported an error.
	KindAPI Kind = "API"
	// KindRetryExhausted indicates the retry budget was used up.
	KindRetryExhausted Kind = "RETRY_EXHAUSTED"
)

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(status int) bool {
	return status == 429 || status >= 500
}
