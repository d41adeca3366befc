package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/echefulouis/DeepFake/api"
	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/echefulouis/DeepFake/metrics"
	"github.com/echefulouis/DeepFake/reporting"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "deepfake.upload"

// UploadHandler runs the upload pipeline: decode, fetch the credential,
// classify the image, archive the raw bytes and answer the caller.
type UploadHandler struct {
	credentials interfaces.CredentialProvider
	detector    interfaces.Detector
	archiver    interfaces.ImageArchiver
	metrics     *metrics.Metrics
	reporter    reporting.Reporter
	cfg         api.PipelineConfig
	preflight   *cors.Cors
	tracer      trace.Tracer
	log         *slog.Logger
}

// NewUploadHandler creates the upload handler. A nil reporter disables error reporting.
func NewUploadHandler(
	credentials interfaces.CredentialProvider,
	detector interfaces.Detector,
	archiver interfaces.ImageArchiver,
	m *metrics.Metrics,
	reporter reporting.Reporter,
	cfg api.PipelineConfig,
	log *slog.Logger,
) *UploadHandler {
	if reporter == nil {
		reporter = reporting.NopReporter{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = api.DefaultMaxBodyBytes
	}
	return &UploadHandler{
		credentials: credentials,
		detector:    detector,
		archiver:    archiver,
		metrics:     m,
		reporter:    reporter,
		cfg:         cfg,
		preflight: cors.New(cors.Options{
			AllowedOrigins:   []string{api.CORSAllowOrigin},
			AllowedMethods:   []string{http.MethodOptions, http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Amz-Date", "X-Api-Key", "X-Amz-Security-Token"},
			AllowCredentials: true,
			MaxAge:           api.CORSPreflightMaxAge,
		}),
		tracer: otel.Tracer(tracerName),
		log:    log,
	}
}

// RegisterRoutes mounts the upload endpoints on mux.
func (h *UploadHandler) RegisterRoutes(mux chi.Router) {
	mux.Post("/upload", h.HandleUpload)
	mux.Options("/upload", h.HandlePreflight)
}

// HandleUpload processes POST /upload.
//
// Request body: {"image": "<base64>"}
//
// Responses:
//   - 200 {"message": "Analysis complete", "detection_result": {...}}
//   - 400 {"error": "<validation message>"}
//   - 500 {"error": "Analysis failed"}
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.log.With(slog.String("request_id", middleware.GetReqID(r.Context())))

	setUploadHeaders(w)

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic in upload pipeline: %v", rec)
			log.Error("Upload handler panicked", "err", err)
			h.reporter.Report(r.Context(), err, map[string]string{"stage": "handler"})
			h.metrics.RecordUpload(metrics.OutcomeDependencyError)
			writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: api.MessageAnalysisFailed})
		}
	}()

	image, err := ReadUpload(w, r, h.cfg.MaxBodyBytes)
	if err != nil {
		var vErr *interfaces.ValidationError
		if !errors.As(err, &vErr) {
			vErr = interfaces.NewValidationError(interfaces.MsgInvalidRequestBody, err)
		}
		log.Info("Rejected upload", slog.String("reason", vErr.Message), "err", err)
		h.metrics.RecordUpload(metrics.OutcomeValidationError)
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: vErr.Message})
		return
	}

	result, err := h.process(r.Context(), log, image)
	if err != nil {
		log.Error("Upload pipeline failed", "err", err, slog.Duration("duration", time.Since(start)))
		h.reporter.Report(r.Context(), err, map[string]string{"dependency": dependencyOf(err)})
		h.metrics.RecordUpload(metrics.OutcomeDependencyError)
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: api.MessageAnalysisFailed})
		return
	}

	log.Info("Upload analysed",
		slog.Int("size", len(image.Raw)),
		slog.Duration("duration", time.Since(start)))
	h.metrics.RecordUpload(metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, api.UploadResponse{
		Message:         api.MessageAnalysisComplete,
		DetectionResult: result,
	})
}

// HandlePreflight answers the CORS preflight for /upload.
func (h *UploadHandler) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	h.preflight.HandlerFunc(w, r)
	w.WriteHeader(http.StatusOK)
}

func (h *UploadHandler) process(ctx context.Context, log *slog.Logger, image *interfaces.DecodedImage) (interfaces.DetectionResult, error) {
	var credential string
	err := h.stage(ctx, metrics.StageCredential, func(ctx context.Context) error {
		var err error
		credential, err = h.credentials.Credential(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var result interfaces.DetectionResult
	err = h.stage(ctx, metrics.StageDetection, func(ctx context.Context) error {
		var err error
		result, err = h.detector.Detect(ctx, image.Base64, credential)
		return err
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrCredentialRejected) {
			log.Warn("Detection service rejected the credential, invalidating", slog.String("provider", h.credentials.Name()))
			h.credentials.Invalidate()
		}
		return nil, err
	}

	err = h.stage(ctx, metrics.StageArchive, func(ctx context.Context) error {
		if h.cfg.ArchiveTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.cfg.ArchiveTimeout)
			defer cancel()
		}
		archived, err := h.archiver.Archive(ctx, image.Raw)
		if err != nil {
			return err
		}
		h.metrics.RecordArchived(archived.Size)
		log.Debug("Archived upload", slog.String("key", archived.Key))
		return nil
	})
	if err != nil {
		if h.cfg.ArchiveFailureFatal {
			return nil, err
		}
		log.Warn("Archive failed, returning detection result anyway", "err", err)
		h.reporter.Report(ctx, err, map[string]string{"dependency": interfaces.DependencyStorage})
	}

	return result, nil
}

// stage runs fn inside a span and records its duration and outcome.
func (h *UploadHandler) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := h.tracer.Start(ctx, "upload."+name, trace.WithAttributes(attribute.String("stage", name)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	h.metrics.RecordStage(name, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
	}
	return err
}

func dependencyOf(err error) string {
	var depErr *interfaces.DependencyError
	if errors.As(err, &depErr) {
		return depErr.Dependency
	}
	return "unknown"
}

func setUploadHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", api.CORSAllowOrigin)
	h.Set("Access-Control-Allow-Headers", api.CORSAllowHeaders)
	h.Set("Access-Control-Allow-Methods", api.CORSAllowMethods)
	h.Set("Access-Control-Allow-Credentials", api.CORSAllowCredentials)
	h.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + api.MessageAnalysisFailed + `"}`)
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
