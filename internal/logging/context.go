package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation fields from ctx: trace and span ids,
// request id, collection kind and load id.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if kind := CollectionFromContext(ctx); kind != "" {
		fields = append(fields, zap.String("collection", kind))
	}
	if id := LoadIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("load.id", id))
	}

	return fields
}

type requestCtxKey struct{}
type collectionCtxKey struct{}
type loadCtxKey struct{}
type loggerCtxKey struct{}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_./-]+$`)

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	return nil
}

func stringFrom(ctx context.Context, key any) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestCtxKey{})
}

// WithRequestID adds a request id. Invalid ids are dropped so a client
// supplied header can never break logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if validateID(requestID, "requestID") != nil {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// CollectionFromContext returns the collection kind, or "".
func CollectionFromContext(ctx context.Context) string {
	return stringFrom(ctx, collectionCtxKey{})
}

// WithCollection adds the collection kind.
// Panics if kind is empty or contains invalid characters.
func WithCollection(ctx context.Context, kind string) context.Context {
	if err := validateID(kind, "collection"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, collectionCtxKey{}, kind)
}

// LoadIDFromContext returns the load id, or "".
func LoadIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, loadCtxKey{})
}

// WithLoadID adds the id of one collection load.
// Panics if id is empty or contains invalid characters.
func WithLoadID(ctx context.Context, id string) context.Context {
	if err := validateID(id, "loadID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, loadCtxKey{}, id)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
