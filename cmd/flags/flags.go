package flags

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/echefulouis/DeepFake/api"
	"github.com/echefulouis/DeepFake/common"
	"github.com/echefulouis/DeepFake/detection"
	"github.com/echefulouis/DeepFake/httpserver"
	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	// The write deadline has to outlast all three outbound calls.
	writeTimeout := cCtx.Duration(SecretTimeoutFlag.Name) +
		cCtx.Duration(DetectionTimeoutFlag.Name) +
		cCtx.Duration(ArchiveTimeoutFlag.Name) +
		5*time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             writeTimeout,
	}
}

func ConfigurePipeline(cCtx *cli.Context) api.PipelineConfig {
	return api.PipelineConfig{
		MaxBodyBytes:        cCtx.Int64(MaxBodyBytesFlag.Name),
		ArchiveTimeout:      cCtx.Duration(ArchiveTimeoutFlag.Name),
		ArchiveFailureFatal: cCtx.Bool(ArchiveFailureFatalFlag.Name),
	}
}

// LoadEnvFile loads variables from the file named by --env-file, if it exists.
// Variables already present in the environment win.
func LoadEnvFile(args []string) error {
	path := ".env"
	for i, arg := range args {
		if arg == "--env-file" && i+1 < len(args) {
			path = args[i+1]
		} else if value, ok := strings.CutPrefix(arg, "--env-file="); ok {
			path = value
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// ReadinessChecks returns the extra /readyz checks. The archive check is
// opt-in since writing objects does not grant bucket listing.
func ReadinessChecks(cCtx *cli.Context, archive interfaces.ArchiveBackend) []httpserver.ReadinessCheck {
	if !cCtx.Bool(ReadyzArchiveCheckFlag.Name) {
		return nil
	}
	return []httpserver.ReadinessCheck{archive.Available}
}

var EnvFileFlag = &cli.StringFlag{
	Name:  "env-file",
	Value: ".env",
	Usage: "dotenv file loaded before reading flags, ignored when missing",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"LISTEN_ADDR"},
}

var BucketFlag = &cli.StringFlag{
	Name:    "bucket",
	Usage:   "S3 bucket that receives archived uploads",
	EnvVars: []string{"BUCKET_NAME"},
}

var ArchiveLocationFlag = &cli.StringSliceFlag{
	Name:    "archive-location",
	Usage:   "archive backend URI (s3://bucket/?region=..&endpoint=.. or file:///dir), repeat to mirror",
	EnvVars: []string{"ARCHIVE_LOCATION"},
}

var ArchivePrefixFlag = &cli.StringFlag{
	Name:    "archive-prefix",
	Value:   "raw",
	Usage:   "key prefix for archived uploads",
	EnvVars: []string{"ARCHIVE_PREFIX"},
}

var AWSRegionFlag = &cli.StringFlag{
	Name:    "aws-region",
	Value:   "us-east-1",
	Usage:   "AWS region for S3 and Secrets Manager",
	EnvVars: []string{"AWS_REGION"},
}

var S3EndpointFlag = &cli.StringFlag{
	Name:    "s3-endpoint",
	Usage:   "custom endpoint for S3-compatible storage",
	EnvVars: []string{"S3_ENDPOINT"},
}

var APISecretFlag = &cli.StringFlag{
	Name:     "api-secret-arn",
	Required: true,
	Usage:    "Secrets Manager ARN or name, or vault://host/mount/path, holding the detection API key",
	EnvVars:  []string{"API_SECRET_ARN"},
}

var SecretCacheTTLFlag = &cli.DurationFlag{
	Name:    "secret-cache-ttl",
	Value:   0,
	Usage:   "cache the detection API key for this long, 0 fetches it on every request",
	EnvVars: []string{"SECRET_CACHE_TTL"},
}

var SecretTimeoutFlag = &cli.DurationFlag{
	Name:    "secret-timeout",
	Value:   10 * time.Second,
	Usage:   "timeout for fetching the detection API key",
	EnvVars: []string{"SECRET_TIMEOUT"},
}

var DetectionEndpointFlag = &cli.StringFlag{
	Name:    "detection-endpoint",
	Value:   detection.DefaultEndpoint,
	Usage:   "deepfake detection API endpoint",
	EnvVars: []string{"DETECTION_ENDPOINT"},
}

var DetectionTimeoutFlag = &cli.DurationFlag{
	Name:    "detection-timeout",
	Value:   detection.DefaultTimeout,
	Usage:   "timeout for the detection API call",
	EnvVars: []string{"DETECTION_TIMEOUT"},
}

var ArchiveTimeoutFlag = &cli.DurationFlag{
	Name:    "archive-timeout",
	Value:   10 * time.Second,
	Usage:   "timeout for archiving an upload",
	EnvVars: []string{"ARCHIVE_TIMEOUT"},
}

var ArchiveFailureFatalFlag = &cli.BoolFlag{
	Name:    "archive-failure-fatal",
	Value:   true,
	Usage:   "fail the request when the upload cannot be archived",
	EnvVars: []string{"ARCHIVE_FAILURE_FATAL"},
}

var ReadyzArchiveCheckFlag = &cli.BoolFlag{
	Name:    "readyz-archive-check",
	Value:   false,
	Usage:   "include archive bucket reachability (HeadBucket, needs s3:ListBucket) in /readyz",
	EnvVars: []string{"READYZ_ARCHIVE_CHECK"},
}

var MaxBodyBytesFlag = &cli.Int64Flag{
	Name:    "max-body-bytes",
	Value:   api.DefaultMaxBodyBytes,
	Usage:   "maximum accepted request body size",
	EnvVars: []string{"MAX_BODY_BYTES"},
}

var SentryDSNFlag = &cli.StringFlag{
	Name:    "sentry-dsn",
	Usage:   "report failed uploads to Sentry",
	EnvVars: []string{"SENTRY_DSN"},
}

var SentryEnvironmentFlag = &cli.StringFlag{
	Name:    "sentry-environment",
	Value:   "production",
	Usage:   "environment tag for Sentry events",
	EnvVars: []string{"SENTRY_ENVIRONMENT"},
}

var OTLPEndpointFlag = &cli.StringFlag{
	Name:    "otlp-endpoint",
	Usage:   "OTLP gRPC collector address (host:port) for trace export, disabled if empty",
	EnvVars: []string{"OTEL_EXPORTER_OTLP_ENDPOINT"},
}

var OTLPInsecureFlag = &cli.BoolFlag{
	Name:    "otlp-insecure",
	Value:   false,
	Usage:   "export traces without TLS",
	EnvVars: []string{"OTEL_EXPORTER_OTLP_INSECURE"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"LOG_DEBUG"},
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-service",
		Value:   service,
		Usage:   "add 'service' tag to logs",
		EnvVars: []string{"LOG_SERVICE"},
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics",
	EnvVars: []string{"METRICS_ADDR"},
}

var CommonFlags = []cli.Flag{
	EnvFileFlag,
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
