/*
Package httpserver implements the HTTP server of the deepfake upload service.

It hosts the upload API together with the operational endpoints, and runs a
separate metrics server for Prometheus scraping.

# API Endpoints

  - POST /upload - Analyse a base64-encoded image
  - OPTIONS /upload - CORS preflight
  - GET /livez - Liveness check
  - GET /readyz - Readiness check, false while draining or when the archive is unreachable
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/pprof - Profiling, only with --pprof

# Middleware

Every request gets a request ID and panic recovery. API routes are also
logged through the flashbots slog middleware and traced with otelhttp.

# Example Usage

	cfg := &api.HTTPServerConfig{
		ListenAddr:               ":8080",
		MetricsAddr:              ":8090",
		Log:                      logger,
		DrainDuration:            30 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             90 * time.Second,
	}

	handler := handlers.NewUploadHandler(credentials, detector, archiver, m, reporter, pipelineCfg, logger)

	server, err := httpserver.New(cfg, metricsSrv, handler, archiveBackend.Available)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	server.RunInBackground()
	defer server.Shutdown()
*/
package httpserver
