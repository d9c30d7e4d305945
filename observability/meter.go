package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/logger"
	"github.com/kbukum/openaikit/version"
)

// MeterConfig configures the OTLP metric exporter.
type MeterConfig struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig targets a local collector with a 15s export interval.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Get().Version,
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, errors.Configuration("cannot create metric exporter").WithCause(err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, errors.Configuration("cannot build telemetry resource").WithCause(err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.WithComponent("observability").Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns the client meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName, metric.WithInstrumentationVersion(version.Get().Version))
}

// Metric instrument names.
const (
	MetricRequests        = "openai.requests"
	MetricRequestDuration = "openai.request.duration"
	MetricRetries         = "openai.retries"
	MetricStreamChunks    = "openai.stream.chunks"
)

// ClientMetrics holds the instruments recorded by the client. A nil
// *ClientMetrics records nothing.
type ClientMetrics struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	retries      metric.Int64Counter
	streamChunks metric.Int64Counter
}

// NewClientMetrics creates the client instruments on meter.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Completed API calls by operation and outcome"),
	)
	if err != nil {
		return nil, instrumentError(MetricRequests, err)
	}

	duration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of API calls including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, instrumentError(MetricRequestDuration, err)
	}

	retries, err := meter.Int64Counter(MetricRetries,
		metric.WithDescription("Retries scheduled after a retryable failure"),
	)
	if err != nil {
		return nil, instrumentError(MetricRetries, err)
	}

	chunks, err := meter.Int64Counter(MetricStreamChunks,
		metric.WithDescription("Chunks delivered by streaming calls"),
	)
	if err != nil {
		return nil, instrumentError(MetricStreamChunks, err)
	}

	return &ClientMetrics{
		requests:     requests,
		duration:     duration,
		retries:      retries,
		streamChunks: chunks,
	}, nil
}

func instrumentError(name string, err error) error {
	return errors.Configuration("cannot create instrument " + name).WithCause(err)
}

// RecordRequest records one finished call. outcome is "ok" or an error kind.
func (m *ClientMetrics) RecordRequest(ctx context.Context, operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordRetry counts one scheduled retry.
func (m *ClientMetrics) RecordRetry(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordStreamChunk counts one delivered stream chunk.
func (m *ClientMetrics) RecordStreamChunk(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.streamChunks.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
