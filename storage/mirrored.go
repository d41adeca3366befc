package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/echefulouis/DeepFake/interfaces"
)

// MirroredBackend implements interfaces.ArchiveBackend by writing to several backends.
// A store succeeds when at least one backend accepted the object.
type MirroredBackend struct {
	backends []interfaces.ArchiveBackend
	log      *slog.Logger
}

// NewMirroredBackend creates a new mirrored archive backend
func NewMirroredBackend(backends []interfaces.ArchiveBackend, logger *slog.Logger) *MirroredBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MirroredBackend{
		backends: backends,
		log:      logger,
	}
}

// Store writes data to every backend. Each write is attempted; only
// the backend's own error marks it as failed.
func (m *MirroredBackend) Store(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	var stored int
	var errs []error

	for _, backend := range m.backends {
		if err := backend.Store(ctx, key, data, contentType); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w: %w", backend.Name(), interfaces.ErrBackendUnavailable, err))
			m.log.Warn("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				slog.String("key", key),
				"err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All backends failed to store object",
			slog.String("key", key),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("all backends failed to store %s: %w", key, errors.Join(errs...))
	}

	m.log.Debug("Stored object in mirrored backends",
		slog.String("key", key),
		slog.Int("stored", stored),
		slog.Int("failed", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if any backend is available
func (m *MirroredBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MirroredBackend) Name() string {
	return "mirrored"
}

// LocationURI returns the combined locations of all backends.
func (m *MirroredBackend) LocationURI() string {
	locations := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "mirrored:[" + strings.Join(locations, ",") + "]"
}
