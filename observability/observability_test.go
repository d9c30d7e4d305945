package observability

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/openaikit/errors"
)

func useSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func newTestMetrics(t *testing.T) (*ClientMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewClientMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewClientMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestDefaultConfigs(t *testing.T) {
	tc := DefaultTracerConfig("svc")
	if tc.ServiceName != "svc" || tc.Endpoint != "localhost:4318" || tc.SampleRate != 1.0 || !tc.Insecure {
		t.Errorf("unexpected tracer defaults %+v", tc)
	}
	if tc.ServiceVersion == "" {
		t.Error("service version should default to the library version")
	}

	mc := DefaultMeterConfig("svc")
	if mc.ServiceName != "svc" || mc.Interval != 15*time.Second {
		t.Errorf("unexpected meter defaults %+v", mc)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("sampler(%v) = %q, want prefix %q", tt.rate, got, tt.want)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.2.3", "test")
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs["service.name"] != "svc" || attrs["service.version"] != "1.2.3" || attrs["deployment.environment"] != "test" {
		t.Errorf("unexpected resource attributes %v", attrs)
	}
}

func TestInitProviders(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	ctx := context.Background()
	tp, err := InitTracer(ctx, DefaultTracerConfig("svc"))
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	mp, err := InitMeter(ctx, MeterConfig{ServiceName: "svc", Endpoint: "localhost:4318"})
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	if otel.GetTracerProvider() != tp || otel.GetMeterProvider() != mp {
		t.Error("expected providers to be installed globally")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_ = tp.Shutdown(shutdownCtx)
	_ = mp.Shutdown(shutdownCtx)
}

func TestClientMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRequest(ctx, "chat.create", "ok", 120*time.Millisecond)
	m.RecordRequest(ctx, "chat.create", "API", 30*time.Millisecond)
	m.RecordRetry(ctx, "chat.create")
	m.RecordStreamChunk(ctx, "chat.stream")
	m.RecordStreamChunk(ctx, "chat.stream")
	m.RecordStreamChunk(ctx, "chat.stream")

	data := collect(t, reader)
	if got := sumOf(t, data[MetricRequests]); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if got := sumOf(t, data[MetricRetries]); got != 1 {
		t.Errorf("retries = %d, want 1", got)
	}
	if got := sumOf(t, data[MetricStreamChunks]); got != 3 {
		t.Errorf("stream chunks = %d, want 3", got)
	}
	hist, ok := data[MetricRequestDuration].(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Errorf("unexpected duration histogram %+v", data[MetricRequestDuration])
	}
}

func TestClientMetricsNilSafe(t *testing.T) {
	var m *ClientMetrics
	ctx := context.Background()
	m.RecordRequest(ctx, "op", "ok", time.Second)
	m.RecordRetry(ctx, "op")
	m.RecordStreamChunk(ctx, "op")
}

func TestClientMetricsNoop(t *testing.T) {
	m, err := NewClientMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil || m == nil {
		t.Fatalf("NewClientMetrics on noop meter: %v", err)
	}
	m.RecordRequest(context.Background(), "op", "ok", time.Second)
}

func TestCallLifecycle(t *testing.T) {
	sr := useSpanRecorder(t)
	m, reader := newTestMetrics(t)

	call := NewCall("chat.create", m)
	call.Model = "gpt-4o-mini"
	if call.ID == "" {
		t.Fatal("expected a call id")
	}

	ctx, span := call.Start(context.Background())
	if CallFromContext(ctx) != call {
		t.Error("expected call in context")
	}
	call.Retry(ctx, 1, 500*time.Millisecond, errors.Transport(stderrors.New("connection reset")))

	apiErr := errors.API(401, &errors.APIError{Message: "invalid key", Code: "invalid_api_key"})
	call.End(ctx, span, apiErr)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "openai.chat.create" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status())
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrCallID].AsString() != call.ID || attrs[AttrModel].AsString() != "gpt-4o-mini" {
		t.Errorf("missing call attributes %v", attrs)
	}
	if attrs[AttrErrorKind].AsString() != "API" || attrs[AttrHTTPStatus].AsInt64() != 401 {
		t.Errorf("missing error attributes %v", attrs)
	}
	if attrs[AttrAPIErrorCode].AsString() != "invalid_api_key" {
		t.Errorf("missing api error code %v", attrs)
	}

	var retryEvents int
	for _, ev := range s.Events() {
		if ev.Name == "retry" {
			retryEvents++
		}
	}
	if retryEvents != 1 {
		t.Errorf("expected 1 retry event, got %d", retryEvents)
	}

	data := collect(t, reader)
	if got := sumOf(t, data[MetricRetries]); got != 1 {
		t.Errorf("retries = %d, want 1", got)
	}
	if got := sumOf(t, data[MetricRequests]); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestCallStatusThroughRetryExhausted(t *testing.T) {
	sr := useSpanRecorder(t)

	call := NewCall("models.list", nil)
	ctx, span := call.Start(context.Background())
	last := errors.APIStatus(503, []byte("upstream unavailable"))
	call.End(ctx, span, errors.RetryExhausted(3, last))

	var status int64
	for _, kv := range sr.Ended()[0].Attributes() {
		if kv.Key == AttrHTTPStatus {
			status = kv.Value.AsInt64()
		}
	}
	if status != 503 {
		t.Errorf("expected status 503 from wrapped error, got %d", status)
	}
}

func TestCallSuccessAndChunks(t *testing.T) {
	sr := useSpanRecorder(t)
	m, reader := newTestMetrics(t)

	call := NewCall("chat.stream", m)
	call.Stream = true
	ctx, span := call.Start(context.Background())
	call.Chunk(ctx)
	call.Chunk(ctx)
	call.End(ctx, span, nil)

	if got := sr.Ended()[0].Status().Code; got == codes.Error {
		t.Error("successful call must not be marked as error")
	}
	if got := sumOf(t, collect(t, reader)[MetricStreamChunks]); got != 2 {
		t.Errorf("chunks = %d, want 2", got)
	}
}

func TestCallDuration(t *testing.T) {
	call := NewCall("op", nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	call.StartTime = start
	call.now = func() time.Time { return start.Add(250 * time.Millisecond) }
	if got := call.Duration(); got != 250*time.Millisecond {
		t.Errorf("Duration() = %v", got)
	}
}

func TestCallFromContextEmpty(t *testing.T) {
	if CallFromContext(context.Background()) != nil {
		t.Error("expected nil call")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.InvalidArgument("stream flag"), "INVALID_ARGUMENT"},
		{stderrors.New("plain"), "unknown"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
