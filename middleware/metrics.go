package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ovenworks/conveyor/stage"
)

// meterName is the instrumentation scope name for conveyor metrics.
const meterName = "github.com/ovenworks/conveyor"

// Metrics returns middleware that records per-invocation metrics using the
// global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - conveyor.stage.duration (Float64Histogram): invocation time in
//     seconds, with attributes: stage, status ("ok" or "error")
//   - conveyor.stage.invocations (Int64Counter): total invocations,
//     with attributes: stage, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"conveyor.stage.duration",
		metric.WithDescription("Duration of stage invocation in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	invocations, iErr := meter.Int64Counter(
		"conveyor.stage.invocations",
		metric.WithDescription("Total number of stage invocations"),
		metric.WithUnit("{invocation}"),
	)
	_ = iErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, inv *Invocation, next Handler) (stage.Payload, error) {
		start := time.Now()
		result, err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("stage", inv.Stage),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		invocations.Add(ctx, 1, attrs)

		return result, err
	}
}
