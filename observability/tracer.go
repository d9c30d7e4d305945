package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/logger"
	"github.com/kbukum/openaikit/version"
)

// InstrumentationName names the tracer and meter used by the client.
const InstrumentationName = "github.com/kbukum/openaikit"

// TracerConfig configures the OTLP trace exporter.
type TracerConfig struct {
	ServiceName    string  `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string  `yaml:"service_version" mapstructure:"service_version"`
	Environment    string  `yaml:"environment" mapstructure:"environment"`
	Endpoint       string  `yaml:"endpoint" mapstructure:"endpoint"` // host:port of the OTLP HTTP receiver
	Insecure       bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// DefaultTracerConfig targets a local collector and samples everything.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Get().Version,
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// InitTracer installs a global tracer provider exporting over OTLP/HTTP.
// The caller owns Shutdown.
func InitTracer(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, errors.Configuration("cannot create trace exporter").WithCause(err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, errors.Configuration("cannot build telemetry resource").WithCause(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.WithComponent("observability").Info("tracer initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("deployment.environment", environment),
		),
	)
}

// Tracer returns the client tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName, trace.WithInstrumentationVersion(version.Get().Version))
}

// StartSpan starts a client span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append([]trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindClient)}, opts...)
	return Tracer().Start(ctx, name, opts...)
}

// RecordError marks span as failed and tags it with the error kind and, for
// API errors, the HTTP status and error code.
func RecordError(span trace.Span, err error) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if kind, ok := errors.KindOf(err); ok {
		span.SetAttributes(attribute.String(AttrErrorKind, kind.String()))
	}
	if status := httpStatus(err); status != 0 {
		span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
	}
	if apiErr, ok := errors.AsAPIError(err); ok {
		if code := apiErr.CodeString(); code != "" {
			span.SetAttributes(attribute.String(AttrAPIErrorCode, code))
		}
	}
}

// httpStatus looks through RetryExhausted wrappers for the last response status.
func httpStatus(err error) int {
	for err != nil {
		appErr, ok := errors.AsAppError(err)
		if !ok {
			return 0
		}
		if appErr.HTTPStatus != 0 {
			return appErr.HTTPStatus
		}
		err = appErr.Cause
	}
	return 0
}

// Span attribute keys.
const (
	AttrCallID       = "openai.call_id"
	AttrOperation    = "openai.operation"
	AttrModel        = "openai.model"
	AttrStream       = "openai.stream"
	AttrAttempt      = "openai.attempt"
	AttrChunks       = "openai.stream.chunks"
	AttrErrorKind    = "error.kind"
	AttrAPIErrorCode = "openai.error.code"
	AttrHTTPStatus   = "http.response.status_code"
)
