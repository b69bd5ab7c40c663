// Package logging provides structured logging on zap with OpenTelemetry
// correlation.
//
// The Logger adds a Trace level below Debug, writes JSON or console output
// through a redacting encoder, samples entries below Error, and can mirror
// entries to an OTel LoggerProvider through the otelzap bridge.
//
// Every method takes a context and prepends the correlation fields found in
// it:
//
//	ctx = logging.WithRequestID(ctx, reqID)
//	ctx = logging.WithCollection(ctx, "members")
//	logger.Info(ctx, "collection loaded", zap.Int("entities", n))
//
// produces
//
//	{"level":"info","msg":"collection loaded","request.id":"...","collection":"members","entities":12}
//
// Use Secret or RedactedString for values that must never be printed, and
// TestLogger in tests:
//
//	tl := logging.NewTestLogger()
//	tl.AssertLogged(t, zapcore.WarnLevel, "collection load failed")
package logging
