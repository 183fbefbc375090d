package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceparentKey = "traceparent"
	tracestateKey  = "tracestate"
)

// TraceContext is a W3C trace context flattened into the two strings stored next to an
// outbox row. The zero value means the row was written outside any sampled span.
type TraceContext struct {
	Parent string
	State  string
}

// CaptureTraceContext serialises the span in ctx. It returns the zero value when ctx
// carries no valid span.
func CaptureTraceContext(ctx context.Context) TraceContext {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return TraceContext{}
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{Parent: carrier[traceparentKey], State: carrier[tracestateKey]}
}

func (tc TraceContext) IsZero() bool {
	return tc.Parent == ""
}

// Attach returns ctx with tc as its remote parent span.
func (tc TraceContext) Attach(ctx context.Context) context.Context {
	if tc.IsZero() {
		return ctx
	}
	carrier := propagation.MapCarrier{traceparentKey: tc.Parent}
	if tc.State != "" {
		carrier[tracestateKey] = tc.State
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
