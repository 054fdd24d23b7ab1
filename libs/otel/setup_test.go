package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	cfg := ConfigFromEnv("booking-service")
	if cfg.Enabled {
		t.Fatalf("expected tracing disabled when OTEL_ENABLED is empty")
	}
	if cfg.SampleRatio != 0.25 {
		t.Fatalf("expected ratio 0.25, got %v", cfg.SampleRatio)
	}

	t.Setenv("OTEL_SAMPLING_RATIO", "7")
	if got := ConfigFromEnv("x").SampleRatio; got != 1 {
		t.Fatalf("expected out of range ratio to fall back to 1, got %v", got)
	}
}

func TestDisabledSetupIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Enabled: false}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	traceparent, _ := TraceContextStrings(ctx)
	if traceparent == "" {
		t.Fatalf("expected traceparent")
	}
	restored := ContextWithTraceContext(context.Background(), traceparent, "")
	again, _ := TraceContextStrings(restored)
	if again != traceparent {
		t.Fatalf("expected %q, got %q", traceparent, again)
	}
}
