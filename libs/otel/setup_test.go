package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := ConfigFromEnv("booking-service")
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if !cfg.Enabled || cfg.SampleRatio != 0.25 || cfg.OTLPEndpoint != "collector:4317" || cfg.ServiceName != "booking-service" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("OTEL_SAMPLING_RATIO", "2")
	if _, err := ConfigFromEnv("booking-service"); err == nil {
		t.Fatal("expected ratio outside [0,1] to fail")
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	if tc := CaptureTraceContext(context.Background()); !tc.IsZero() {
		t.Fatalf("expected zero trace context without a span, got %+v", tc)
	}

	ctx, span := tp.Tracer("test").Start(context.Background(), "outbox")
	defer span.End()

	tc := CaptureTraceContext(ctx)
	if tc.IsZero() {
		t.Fatal("expected traceparent")
	}

	restored := tc.Attach(context.Background())
	if got := trace.SpanContextFromContext(restored); !got.IsRemote() || got.TraceID() != span.SpanContext().TraceID() {
		t.Fatalf("unexpected restored span context: %+v", got)
	}
	if again := CaptureTraceContext(restored); again.Parent != tc.Parent {
		t.Fatalf("traceparent changed: %q != %q", again.Parent, tc.Parent)
	}
}
