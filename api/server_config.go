package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig contains all configuration parameters for the HTTP server.
type HTTPServerConfig struct {
	// ListenAddr is the address and port the HTTP server will listen on.
	ListenAddr string

	// MetricsAddr is the address and port for the metrics server.
	// If empty, metrics server will not be started.
	MetricsAddr string

	// EnablePprof enables the pprof debugging API when true.
	EnablePprof bool

	// Log is the structured logger for server operations.
	Log *slog.Logger

	// DrainDuration is the time to wait after marking server not ready
	// before shutting down, allowing load balancers to detect the change.
	DrainDuration time.Duration

	// GracefulShutdownDuration is the maximum time to wait for in-flight
	// requests to complete during shutdown.
	GracefulShutdownDuration time.Duration

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. It must cover the secret, detection and archive stages.
	WriteTimeout time.Duration
}

// PipelineConfig tunes the upload pipeline.
type PipelineConfig struct {
	// MaxBodyBytes caps the size of an upload request body.
	MaxBodyBytes int64

	// ArchiveTimeout bounds the archive write.
	ArchiveTimeout time.Duration

	// ArchiveFailureFatal turns archive failures into HTTP 500. When false
	// the failure is logged and the detection result is still returned.
	ArchiveFailureFatal bool
}

// DefaultMaxBodyBytes admits images of roughly 7.5MB once base64 encoded.
const DefaultMaxBodyBytes = 10 << 20
