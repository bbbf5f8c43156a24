package tracer

import (
	"context"
	"log"

	"knowledge-base-be/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const serviceName = "knowledge-base-backend"

// InitTracer wires the global OTLP HTTP trace exporter. Tracing is off unless
// OTLP_ENDPOINT is set; the returned shutdown func flushes pending spans and
// is safe to call either way.
func InitTracer(cfg *config.Config) func(context.Context) error {
	noop := func(context.Context) error { return nil }

	endpoint := cfg.App.OtlpEndpoint
	if endpoint == "" {
		log.Println("Tracing disabled (OTLP_ENDPOINT not set)")
		return noop
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Printf("Warning: OTLP exporter init failed, tracing disabled: %v", err)
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)

	log.Printf("Tracing enabled (endpoint: %s)", endpoint)
	return tp.Shutdown
}
