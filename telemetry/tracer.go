// Package telemetry builds the OpenTelemetry tracer provider of the command
// line tool. Spans are written to a slog logger, so a trace of a run ends up
// next to its logs without a collector.
package telemetry

import (
	"context"
	"encoding/hex"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is the resource service name of emitted spans.
const ServiceName = "warnings"

// NewTracerProvider creates a TracerProvider that logs every finished span
// through logger at debug level.
//
// The provider uses a SimpleSpanProcessor, so spans are logged as soon as
// they end. Callers must Shutdown the provider.
func NewTracerProvider(logger *slog.Logger, version string) *sdktrace.TracerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(ServiceName)}
	if version != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(version))
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		logger.Warn("failed to create resource, using default", "error", err)
		res = resource.Default()
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(NewLogExporter(logger))),
		sdktrace.WithResource(res),
	)
}

// Tracer returns the tracer the engine is instrumented with.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	return tp.Tracer(ServiceName)
}

// LogExporter is a SpanExporter that writes spans as structured log records.
type LogExporter struct {
	logger *slog.Logger
}

// NewLogExporter creates an exporter writing to logger.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExporter{logger: logger}
}

// ExportSpans logs each span. It never fails.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "span", spanAttrs(span)...)
	}
	return nil
}

// Shutdown is a no-op; the logger outlives the exporter.
func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

func spanAttrs(span sdktrace.ReadOnlySpan) []slog.Attr {
	sc := span.SpanContext()
	traceID := sc.TraceID()
	spanID := sc.SpanID()

	out := []slog.Attr{
		slog.String("name", span.Name()),
		slog.String("trace_id", hex.EncodeToString(traceID[:])),
		slog.String("span_id", hex.EncodeToString(spanID[:])),
		slog.Duration("duration", span.EndTime().Sub(span.StartTime())),
		slog.String("status", span.Status().Code.String()),
	}
	if span.Parent().IsValid() {
		parentID := span.Parent().SpanID()
		out = append(out, slog.String("parent_span_id", hex.EncodeToString(parentID[:])))
	}
	if desc := span.Status().Description; desc != "" {
		out = append(out, slog.String("status_message", desc))
	}

	if attrs := span.Attributes(); len(attrs) > 0 {
		group := make([]any, 0, len(attrs))
		for _, kv := range attrs {
			group = append(group, slog.Any(string(kv.Key), kv.Value.AsInterface()))
		}
		out = append(out, slog.Group("attributes", group...))
	}
	return out
}
