package warnings

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// otelMetrics holds the metric instruments of the engine. They are created
// once in New and reused for every parse.
type otelMetrics struct {
	// issuesCounter counts issues produced, by tool
	issuesCounter metric.Int64Counter

	// malformedCounter counts skipped records, by tool
	malformedCounter metric.Int64Counter

	// durationHistogram records parse duration in milliseconds
	durationHistogram metric.Float64Histogram
}

func newOTelMetrics(meter metric.Meter) (*otelMetrics, error) {
	if meter == nil {
		return nil, nil
	}

	m := &otelMetrics{}
	var err error

	m.issuesCounter, err = meter.Int64Counter(
		"warnings.issues",
		metric.WithDescription("Number of issues produced by report parsing"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create issues counter: %w", err)
	}

	m.malformedCounter, err = meter.Int64Counter(
		"warnings.malformed_records",
		metric.WithDescription("Number of report records skipped as malformed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create malformed records counter: %w", err)
	}

	m.durationHistogram, err = meter.Float64Histogram(
		"warnings.parse.duration",
		metric.WithDescription("Report parse duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return m, nil
}

// startSpan starts the parse span when a tracer is configured.
func (e *Engine) startSpan(ctx context.Context, req Request) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}
	ctx, span := e.tracer.Start(ctx, "warnings.parse")
	span.SetAttributes(
		attribute.String("warnings.tool", req.Tool),
		attribute.String("warnings.path", req.Path),
	)
	return ctx, span
}

// record ends the span and records metrics for one parse. It is a no-op
// when neither a tracer nor a meter is configured.
func (e *Engine) record(ctx context.Context, span trace.Span, req Request, res *Result, err error, elapsed time.Duration) {
	if span != nil {
		defer span.End()

		if res != nil {
			span.SetAttributes(
				attribute.Int("warnings.records", res.Stats.Records),
				attribute.Int("warnings.issues", res.Stats.Issues),
				attribute.Int("warnings.malformed", res.Stats.Malformed),
				attribute.Bool("warnings.cached", res.Cached),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if e.metrics == nil {
		return
	}
	opts := metric.WithAttributes(
		attribute.String("tool", req.Tool),
		attribute.Bool("error", err != nil),
	)
	e.metrics.durationHistogram.Record(ctx, float64(elapsed.Microseconds())/1000, opts)
	if res != nil {
		toolOpt := metric.WithAttributes(attribute.String("tool", req.Tool))
		e.metrics.issuesCounter.Add(ctx, int64(res.Stats.Issues), toolOpt)
		e.metrics.malformedCounter.Add(ctx, int64(res.Stats.Malformed), toolOpt)
	}
}
