package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldCallID    = "call_id"
	FieldEndpoint  = "endpoint"
	FieldMethod    = "method"
	FieldStatus    = "status"
	FieldAttempt   = "attempt"
	FieldBackoff   = "backoff_ms"
	FieldStream    = "stream"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Debug("done", logger.Fields("endpoint", "/chat/completions", "status", 200))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(endpoint string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldEndpoint: endpoint,
		FieldError:    err.Error(),
	}
}

// RetryFields creates fields describing a scheduled retry.
func RetryFields(attempt int, backoff time.Duration, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldAttempt: attempt,
		FieldBackoff: backoff.Milliseconds(),
		FieldError:   err.Error(),
	}
}

// MergeWithDuration adds a duration field to an existing map.
func MergeWithDuration(fields map[string]interface{}, d time.Duration) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
