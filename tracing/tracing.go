package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const dialTimeout = 10 * time.Second

// Config describes where spans are exported.
type Config struct {
	ServiceName string
	Version     string
	Environment string

	// Endpoint is the OTLP gRPC collector address (host:port). Empty disables export.
	Endpoint string
	Insecure bool
}

// ShutdownFunc flushes buffered spans and stops the exporter.
type ShutdownFunc func(context.Context) error

// Setup installs the process-wide tracer provider. Without an endpoint the
// global no-op provider stays in place and the returned shutdown does nothing.
func Setup(ctx context.Context, cfg Config, log *slog.Logger) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	if log == nil {
		log = slog.Default()
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	exporter, err := otlptrace.New(dialCtx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	provider, err := NewProvider(ctx, cfg, exporter)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(provider)

	log.Info("Tracing enabled", "endpoint", cfg.Endpoint, "service", cfg.ServiceName)
	return provider.Shutdown, nil
}

// NewProvider builds a batching tracer provider around exporter, tagged with
// the service resource attributes.
func NewProvider(ctx context.Context, cfg Config, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithMaxExportBatchSize(100), sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	), nil
}
