// Package telemetry sets up OpenTelemetry tracing and metrics for
// directoryd.
//
// Spans and metrics are exported over OTLP, using gRPC or HTTP/protobuf, to a
// collector. When telemetry is disabled, or an exporter cannot be built,
// Tracer and Meter return the global no-op implementations, so callers never
// need to check.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("github.com/fyrsmithlabs/directoryd/internal/directory")
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
