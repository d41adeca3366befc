package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/echefulouis/DeepFake/api"
	"github.com/echefulouis/DeepFake/metrics"
	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/atomic"
)

const spanName = "deepfake.api"

// RouteRegistrar mounts API routes on the server router.
type RouteRegistrar interface {
	RegisterRoutes(mux chi.Router)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) bool

// Server hosts the upload API next to health and drain endpoints, and
// optionally runs the metrics server alongside it.
type Server struct {
	cfg     *api.HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	routes     RouteRegistrar
	checks     []ReadinessCheck
}

// New creates the API server. checks are consulted by /readyz in addition to
// the drain state.
func New(cfg *api.HTTPServerConfig, metricsSrv *metrics.MetricsServer, routes RouteRegistrar, checks ...ReadinessCheck) (*Server, error) {
	if cfg.Log == nil {
		return nil, errors.New("logger is required")
	}
	if routes == nil {
		return nil, errors.New("routes are required")
	}

	srv := &Server{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metricsSrv,
		routes:     routes,
		checks:     checks,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv, nil
}

func (srv *Server) router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Group(func(r chi.Router) {
		r.Use(srv.accessLog)
		r.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, spanName)
		})
		srv.routes.RegisterRoutes(r)
	})

	mux.Group(func(r chi.Router) {
		r.Use(srv.accessLog)
		r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
			writeStatus(w, http.StatusOK, "alive")
		})
		r.Get("/readyz", srv.handleReadiness)
		r.Get("/drain", srv.readyToggle(false))
		r.Get("/undrain", srv.readyToggle(true))
	})

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) accessLog(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// Ready reports the drain state combined with every readiness check.
func (srv *Server) Ready(ctx context.Context) bool {
	if !srv.isReady.Load() {
		return false
	}
	for _, check := range srv.checks {
		if !check(ctx) {
			return false
		}
	}
	return true
}

func (srv *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !srv.Ready(r.Context()) {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

// readyToggle serves /drain (ready=false) and /undrain (ready=true).
func (srv *Server) readyToggle(ready bool) http.HandlerFunc {
	status, already := "draining", "already draining"
	if ready {
		status, already = "ready", "already ready"
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		if srv.isReady.Swap(ready) == ready {
			writeStatus(w, http.StatusOK, already)
			return
		}
		srv.log.Info("Readiness changed", slog.Bool("ready", ready))
		writeStatus(w, http.StatusOK, status)
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":%q}`, status)
}

// Drain marks the server as not ready and waits for DrainDuration so load
// balancers stop routing new uploads before shutdown.
func (srv *Server) Drain() {
	if srv.isReady.Swap(false) {
		srv.log.Info("Draining", slog.Duration("duration", srv.cfg.DrainDuration))
		time.Sleep(srv.cfg.DrainDuration)
	}
}

func (srv *Server) metricsEnabled() bool {
	return srv.cfg.MetricsAddr != "" && srv.metricsSrv != nil
}

// RunInBackground starts the API listener, and the metrics listener when configured.
func (srv *Server) RunInBackground() {
	if srv.metricsEnabled() {
		go srv.serve("metrics", srv.cfg.MetricsAddr, srv.metricsSrv.ListenAndServe)
	}
	go srv.serve("api", srv.cfg.ListenAddr, srv.srv.ListenAndServe)
}

func (srv *Server) serve(name, addr string, listen func() error) {
	srv.log.Info("Starting listener", "server", name, "listenAddress", addr)
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		srv.log.Error("Listener failed", "server", name, "err", err)
	}
}

// Shutdown stops the API server, then the metrics server, each bounded by
// GracefulShutdownDuration.
func (srv *Server) Shutdown() {
	srv.stop("api", srv.srv.Shutdown)
	if srv.metricsEnabled() {
		srv.stop("metrics", srv.metricsSrv.Shutdown)
	}
}

func (srv *Server) stop(name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		srv.log.Error("Graceful shutdown failed", "server", name, "err", err)
		return
	}
	srv.log.Info("Server gracefully stopped", "server", name)
}
