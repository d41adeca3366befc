package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes a registry on GET /metrics.
type MetricsServer struct {
	metrics *Metrics
	srv     *http.Server
}

// New creates the metrics collectors and a server for them on listenAddr.
func New(namespace, listenAddr string) (*MetricsServer, error) {
	return NewWithMetrics(NewMetrics(namespace), listenAddr), nil
}

// NewWithMetrics serves existing collectors.
func NewWithMetrics(m *Metrics, listenAddr string) *MetricsServer {
	mux := chi.NewRouter()
	mux.Get("/metrics", m.Handler().ServeHTTP)

	return &MetricsServer{
		metrics: m,
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
}

// Metrics returns the collectors served by this server.
func (s *MetricsServer) Metrics() *Metrics {
	return s.metrics
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
