// Package tracing wraps dispatch and flush in OpenTelemetry spans. It wires
// go.opentelemetry.io/otel's SDK and in-process tracer, but does not wire an
// exporter: there is no external collector in scope for this library, so
// spans are only useful to an in-process SpanProcessor a host application
// registers itself (or, during development, an otel stdout/console
// exporter the application wires in outside this package).
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "notifyhub/internal/batcher"

// NewProvider builds a TracerProvider. Callers that want spans to leave the
// process should register their own exporter-backed SpanProcessor on the
// returned provider before calling otel.SetTracerProvider.
func NewProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(opts...)
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartDispatch opens a span covering one channel's dispatch.
func StartDispatch(ctx context.Context, channelID string, batchSize int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "batcher.dispatch", trace.WithAttributes(
		attribute.String("channel", channelID),
		attribute.Int("batch_size", batchSize),
	))
}

// StartFlush opens a span covering a whole Flush call.
func StartFlush(ctx context.Context, channelCount int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "batcher.flush", trace.WithAttributes(
		attribute.Int("channel_count", channelCount),
	))
}
