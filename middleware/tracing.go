package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ovenworks/conveyor/stage"
)

// tracerName is the instrumentation scope name for conveyor tracing.
const tracerName = "github.com/ovenworks/conveyor"

// Tracing returns middleware that wraps stage invocation in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes: conveyor.stage, conveyor.order_id. On error, the span
// status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (stage.Payload, error) {
		ctx, span := tracer.Start(ctx, "conveyor.stage.invoke",
			trace.WithAttributes(
				attribute.String("conveyor.stage", inv.Stage),
				attribute.String("conveyor.order_id", inv.OrderID),
			),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		result, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return result, err
	}
}
