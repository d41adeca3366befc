package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Upload outcomes recorded in deepfake_upload_requests_total.
const (
	OutcomeSuccess         = "success"
	OutcomeValidationError = "validation_error"
	OutcomeDependencyError = "dependency_error"
)

// Pipeline stages.
const (
	StageCredential = "credential"
	StageDetection  = "detection"
	StageArchive    = "archive"
)

// Metrics holds the Prometheus collectors of the upload pipeline.
type Metrics struct {
	uploadRequests *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	archivedBytes  prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates collectors in a fresh registry, namespaced by namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		uploadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_requests_total",
				Help:      "Total number of upload requests by outcome",
			},
			[]string{"outcome"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),

		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_failures_total",
				Help:      "Total number of failed pipeline stages",
			},
			[]string{"stage"},
		),

		archivedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archived_bytes_total",
				Help:      "Total number of image bytes written to the archive",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.uploadRequests,
		m.stageDuration,
		m.stageFailures,
		m.archivedBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordUpload counts one finished upload request.
func (m *Metrics) RecordUpload(outcome string) {
	m.uploadRequests.WithLabelValues(outcome).Inc()
}

// RecordStage observes a pipeline stage. Failed stages are also counted separately.
func (m *Metrics) RecordStage(stage string, duration time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordArchived adds the size of an archived image.
func (m *Metrics) RecordArchived(size int) {
	m.archivedBytes.Add(float64(size))
}

// Registry returns the registry all collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
