package observability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/openaikit/errors"
)

// Call tracks a single client operation across its retries.
type Call struct {
	ID        string
	Operation string
	Model     string
	Stream    bool
	StartTime time.Time

	metrics *ClientMetrics
	now     func() time.Time
}

// NewCall starts tracking operation with a fresh call id. metrics may be nil.
func NewCall(operation string, metrics *ClientMetrics) *Call {
	return &Call{
		ID:        uuid.NewString(),
		Operation: operation,
		StartTime: time.Now(),
		metrics:   metrics,
		now:       time.Now,
	}
}

type callKey struct{}

// WithCall stores c in ctx.
func WithCall(ctx context.Context, c *Call) context.Context {
	return context.WithValue(ctx, callKey{}, c)
}

// CallFromContext returns the Call stored in ctx, or nil.
func CallFromContext(ctx context.Context) *Call {
	c, _ := ctx.Value(callKey{}).(*Call)
	return c
}

// Start opens the span for the call and stores the call in the returned context.
func (c *Call) Start(ctx context.Context) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrCallID, c.ID),
		attribute.String(AttrOperation, c.Operation),
		attribute.Bool(AttrStream, c.Stream),
	}
	if c.Model != "" {
		attrs = append(attrs, attribute.String(AttrModel, c.Model))
	}
	ctx, span := StartSpan(ctx, "openai."+c.Operation, trace.WithAttributes(attrs...))
	return WithCall(ctx, c), span
}

// Retry records a scheduled retry on the span and in metrics.
func (c *Call) Retry(ctx context.Context, attempt int, backoff time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		attrs := []attribute.KeyValue{
			attribute.Int(AttrAttempt, attempt),
			attribute.Int64("backoff_ms", backoff.Milliseconds()),
		}
		if kind, ok := errors.KindOf(err); ok {
			attrs = append(attrs, attribute.String(AttrErrorKind, kind.String()))
		}
		span.AddEvent("retry", trace.WithAttributes(attrs...))
	}
	c.metrics.RecordRetry(ctx, c.Operation)
}

// Chunk records one delivered stream chunk.
func (c *Call) Chunk(ctx context.Context) {
	c.metrics.RecordStreamChunk(ctx, c.Operation)
}

// End closes span and records the call outcome.
func (c *Call) End(ctx context.Context, span trace.Span, err error) {
	RecordError(span, err)
	span.End()
	c.metrics.RecordRequest(ctx, c.Operation, Outcome(err), c.Duration())
}

// Duration returns the time elapsed since the call started.
func (c *Call) Duration() time.Duration {
	return c.now().Sub(c.StartTime)
}

// Outcome maps err to a low-cardinality metric label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := errors.KindOf(err); ok {
		return kind.String()
	}
	return "unknown"
}
