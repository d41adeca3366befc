// Package reporting forwards unexpected pipeline failures to Sentry.
package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter receives failures that ended in an HTTP 500.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// Opts configures NewReporter.
type Opts struct {
	DSN         string
	Environment string
	Release     string
}

// NewReporter returns a Sentry reporter, or a no-op reporter when no DSN is configured.
func NewReporter(opts Opts, log *slog.Logger) (Reporter, error) {
	if opts.DSN == "" {
		return NopReporter{}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Release:     opts.Release,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}

	log.Info("Sentry error reporting enabled", slog.String("environment", opts.Environment))
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// SentryReporter sends events through its own hub.
type SentryReporter struct {
	hub *sentry.Hub
}

func (r *SentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		scope.SetContext("request", sentry.Context{"cancelled": ctx.Err() != nil})
		hub.CaptureException(err)
	})
}

func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

// NopReporter discards all reports.
type NopReporter struct{}

func (NopReporter) Report(context.Context, error, map[string]string) {}

func (NopReporter) Flush(time.Duration) bool { return true }
