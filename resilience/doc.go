// Package resilience provides the retry/backoff controller used around every
// non-streaming call (and around the connect phase of streaming calls).
//
// A Policy wraps one logical operation. Backoff retries retryable failures
// with exponential backoff and jitter until either the attempt count or the
// elapsed-time budget runs out, then surfaces the last error wrapped as a
// RETRY_EXHAUSTED error. NoRetry is the transparent decorator for runtimes
// that cannot (or should not) sleep between attempts.
//
//	policy := resilience.NewBackoff(resilience.DefaultRetryConfig())
//	err := policy.Execute(ctx, func(ctx context.Context) error {
//	    return send(ctx)
//	})
package resilience
