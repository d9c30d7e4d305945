// Package observability wires OpenTelemetry tracing and metrics into the
// OpenAI client.
//
// Exporters are optional. Without InitTracer/InitMeter the client records
// into the global no-op providers.
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-service"))
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-service"))
//	defer mp.Shutdown(ctx)
//
// Each API call is tracked by a Call, which owns the span, the call id used
// in logs and the request metrics:
//
//	call := observability.NewCall("chat.create", metrics)
//	ctx, span := call.Start(ctx)
//	defer func() { call.End(ctx, span, err) }()
package observability
