// Package tracing bootstraps OpenTelemetry span export over OTLP gRPC.
package tracing
