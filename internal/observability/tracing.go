// Package observability builds the process-wide OpenTelemetry tracer
// provider, grounded on the teacher's internal/observability/tracing.go
// (NewTracer/NewTracerProvider shape, OTLP-gRPC exporter wiring, no-op
// fallback when no collector endpoint is configured).
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// TraceConfig configures the tracer provider built for one gateway process.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	// OTLPEndpoint is the OTLP/gRPC collector address ("host:port"). If
	// empty, spans are recorded in-process but never exported.
	OTLPEndpoint string
	Insecure     bool
}

// NewTracerProvider builds a TracerProvider that always-samples. When
// OTLPEndpoint is set it batches spans to an OTLP/gRPC collector; otherwise
// it returns a provider with no span processor registered, so pipeline
// spans are still created (and can be inspected by tests) but nothing is
// exported over the network.
func NewTracerProvider(ctx context.Context, cfg TraceConfig) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		res = resource.Default()
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if cfg.OTLPEndpoint != "" {
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
		if err != nil {
			return nil, fmt.Errorf("build otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}
