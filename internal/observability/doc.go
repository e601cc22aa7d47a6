// Package observability provides logging and distributed tracing for the
// sessions API.
//
// # Logging
//
// The Logger interface provides structured logging backed by zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("session resolved",
//	    observability.Uint32("session_id", 12345),
//	    observability.Duration("elapsed", elapsed),
//	)
//
// # Tracing
//
// OpenTelemetry tracing with optional OTLP/gRPC export. The tracer
// provider registers itself globally so library integrations (the
// GraphQL executor, the policy client) pick it up via otel.Tracer:
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{
//	    ServiceName: "sessions-api",
//	    Enabled:     true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(ctx)
//
// Trace context crosses process boundaries in W3C format; use
// InjectTraceContext to stamp outbound requests so the policy decision
// call appears as a child span of the originating request.
package observability
