// Package errors provides the single error type surfaced by openaikit.
//
// Every failure produced while building, sending, retrying or decoding a
// request is reported as an *AppError classified by exactly one Kind:
//
//   - KindConfiguration: bad or missing client configuration
//   - KindIO: local file access (multipart sources)
//   - KindTransport: connection-level failures and timeouts
//   - KindDeserialization: a body or stream chunk did not match the expected shape
//   - KindAPI: the server answered with an error object or a non-2xx status
//   - KindRetryExhausted: the retry budget ran out; wraps the last error
//   - KindInvalidArgument: the caller asked for an unsatisfiable combination
//
// Use IsKind, KindOf, IsRetryable and AsAPIError to inspect errors.
package errors
