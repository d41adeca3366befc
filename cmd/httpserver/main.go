package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echefulouis/DeepFake/api/handlers"
	"github.com/echefulouis/DeepFake/cmd/flags"
	"github.com/echefulouis/DeepFake/common"
	"github.com/echefulouis/DeepFake/detection"
	"github.com/echefulouis/DeepFake/httpserver"
	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/echefulouis/DeepFake/metrics"
	"github.com/echefulouis/DeepFake/reporting"
	"github.com/echefulouis/DeepFake/secrets"
	"github.com/echefulouis/DeepFake/storage"
	"github.com/echefulouis/DeepFake/tracing"
	"github.com/urfave/cli/v2"
)

var serverFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.BucketFlag,
	flags.ArchiveLocationFlag,
	flags.ArchivePrefixFlag,
	flags.AWSRegionFlag,
	flags.S3EndpointFlag,
	flags.APISecretFlag,
	flags.SecretCacheTTLFlag,
	flags.SecretTimeoutFlag,
	flags.DetectionEndpointFlag,
	flags.DetectionTimeoutFlag,
	flags.ArchiveTimeoutFlag,
	flags.ArchiveFailureFatalFlag,
	flags.ReadyzArchiveCheckFlag,
	flags.MaxBodyBytesFlag,
	flags.SentryDSNFlag,
	flags.SentryEnvironmentFlag,
	flags.OTLPEndpointFlag,
	flags.OTLPInsecureFlag,
	flags.LogServiceFlagFn("deepfake-upload"),
}, flags.CommonFlags...)

func main() {
	if err := flags.LoadEnvFile(os.Args); err != nil {
		log.Fatalf("failed to load env file: %v", err)
	}

	app := &cli.App{
		Name:  "deepfake-server",
		Usage: "Serve the deepfake image detection upload API",
		Flags: serverFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			// Archive backend
			locations, err := archiveLocations(cCtx)
			if err != nil {
				logger.Error("Invalid archive configuration", "err", err)
				return err
			}

			storageFactory := storage.NewStorageBackendFactory(logger)
			archiveBackend, err := storageFactory.CreateMirroredBackend(locations)
			if err != nil {
				logger.Error("Failed to create archive backend", "err", err)
				return err
			}
			archiver := storage.NewArchiver(archiveBackend, cCtx.String(flags.ArchivePrefixFlag.Name), logger)
			logger.Info("Archive backend configured", "location", archiveBackend.LocationURI())

			// Credential provider
			credentials, err := secrets.NewProvider(cCtx.String(flags.APISecretFlag.Name), secrets.ProviderOpts{
				Region:   cCtx.String(flags.AWSRegionFlag.Name),
				Timeout:  cCtx.Duration(flags.SecretTimeoutFlag.Name),
				CacheTTL: cCtx.Duration(flags.SecretCacheTTLFlag.Name),
			}, logger)
			if err != nil {
				logger.Error("Failed to create credential provider", "err", err)
				return err
			}
			logger.Info("Credential provider configured", "provider", credentials.Name())

			detector := detection.NewClient(
				cCtx.String(flags.DetectionEndpointFlag.Name),
				cCtx.Duration(flags.DetectionTimeoutFlag.Name),
				logger,
			)

			reporter, err := reporting.NewReporter(reporting.Opts{
				DSN:         cCtx.String(flags.SentryDSNFlag.Name),
				Environment: cCtx.String(flags.SentryEnvironmentFlag.Name),
				Release:     common.Version,
			}, logger)
			if err != nil {
				logger.Error("Failed to set up error reporting", "err", err)
				return err
			}
			defer reporter.Flush(2 * time.Second)

			shutdownTracing, err := tracing.Setup(cCtx.Context, tracing.Config{
				ServiceName: cCtx.String("log-service"),
				Version:     common.Version,
				Environment: cCtx.String(flags.SentryEnvironmentFlag.Name),
				Endpoint:    cCtx.String(flags.OTLPEndpointFlag.Name),
				Insecure:    cCtx.Bool(flags.OTLPInsecureFlag.Name),
			}, logger)
			if err != nil {
				logger.Error("Failed to set up tracing", "err", err)
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(ctx); err != nil {
					logger.Warn("Failed to flush traces", "err", err)
				}
			}()

			cfg := flags.ConfigureServer(cCtx, logger)

			metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			handler := handlers.NewUploadHandler(
				credentials,
				detector,
				archiver,
				metricsSrv.Metrics(),
				reporter,
				flags.ConfigurePipeline(cCtx),
				logger,
			)

			server, err := httpserver.New(cfg, metricsSrv, handler, flags.ReadinessChecks(cCtx, archiveBackend)...)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// archiveLocations resolves --archive-location, falling back to --bucket.
func archiveLocations(cCtx *cli.Context) ([]interfaces.StorageBackendLocation, error) {
	raw := cCtx.StringSlice(flags.ArchiveLocationFlag.Name)
	if len(raw) == 0 {
		bucket := cCtx.String(flags.BucketFlag.Name)
		if bucket == "" {
			return nil, errors.New("either --bucket (BUCKET_NAME) or --archive-location is required")
		}
		location, err := interfaces.S3Location(bucket, cCtx.String(flags.AWSRegionFlag.Name), cCtx.String(flags.S3EndpointFlag.Name))
		if err != nil {
			return nil, err
		}
		return []interfaces.StorageBackendLocation{location}, nil
	}

	locations := make([]interfaces.StorageBackendLocation, 0, len(raw))
	for _, uri := range raw {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, fmt.Errorf("archive location %q: %w", uri, err)
		}
		locations = append(locations, location)
	}
	return locations, nil
}
