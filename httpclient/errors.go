package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/openaikit/errors"
)

// transportError maps a failure from http.Client.Do or a body read into the
// error taxonomy. A cancelled or expired caller context is terminal; any other
// connection-level failure (refused, reset, client timeout) is retryable.
func transportError(ctx context.Context, err error) *errors.AppError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Canceled(ctxErr)
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.Canceled(err)
	}
	return errors.Transport(err)
}

// readError wraps a failure while draining a response body.
func readError(ctx context.Context, err error) *errors.AppError {
	return transportError(ctx, fmt.Errorf("read response body: %w", err))
}
