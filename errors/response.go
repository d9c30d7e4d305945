package errors

import (
	"encoding/json"
	"fmt"
)

// APIError is the error object reported by the API.
type APIError struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	// Code is a string on most endpoints but some gateways send a number.
	Code any `json:"code"`
}

// CodeString returns Code rendered as a string, or "" when absent.
func (e *APIError) CodeString() string {
	switch v := e.Code.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ErrorResponse is the JSON envelope wrapping an APIError.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// FromResponse converts a non-success HTTP response into an AppError.
// It decodes the {"error":{...}} envelope when present and falls back to the
// raw status and body text otherwise.
func FromResponse(status int, body []byte) *AppError {
	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return API(status, env.Error)
	}
	return APIStatus(status, body)
}

// ParseStreamError reports whether a stream payload is an error envelope and
// returns it as an AppError. Mid-stream errors carry no HTTP status.
func ParseStreamError(data []byte) (*AppError, bool) {
	var env ErrorResponse
	if err := json.Unmarshal(data, &env); err != nil || env.Error == nil || env.Error.Message == "" {
		return nil, false
	}
	return API(0, env.Error), true
}
