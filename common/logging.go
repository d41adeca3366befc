package common

import (
	"log/slog"
	"os"
)

// LoggingOpts controls how SetupLogger builds the process logger.
type LoggingOpts struct {
	Debug   bool
	JSON    bool
	Service string
	Version string
}

// SetupLogger returns a slog.Logger writing to stdout, tagged with service
// and version when those are set.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	if opts.JSON {
		log = LoggerJSON(logLevel)
	} else {
		log = LoggerText(logLevel)
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}

	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	return log
}

func LoggerJSON(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: level == slog.LevelDebug,
		Level:     level,
	}))
}

func LoggerText(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: level == slog.LevelDebug,
		Level:     level,
	}))
}
