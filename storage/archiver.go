package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/google/uuid"
)

const (
	// DefaultArchivePrefix is the key prefix under which raw uploads are kept.
	DefaultArchivePrefix = "raw"

	// ArchiveContentType is recorded on every archived object. Uploads are
	// archived as JPEG regardless of what the bytes actually contain.
	ArchiveContentType = "image/jpeg"

	archiveExtension = ".jpg"
)

// Archiver stores raw image bytes under fresh random keys of the form
// <prefix>/<uuid>.jpg.
type Archiver struct {
	backend interfaces.ArchiveBackend
	prefix  string
	newID   func() uuid.UUID
	log     *slog.Logger
}

// NewArchiver creates an archiver writing to backend. An empty prefix
// falls back to DefaultArchivePrefix.
func NewArchiver(backend interfaces.ArchiveBackend, prefix string, log *slog.Logger) *Archiver {
	if log == nil {
		log = slog.Default()
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultArchivePrefix
	}
	return &Archiver{
		backend: backend,
		prefix:  prefix,
		newID:   uuid.New,
		log:     log,
	}
}

// ObjectKey returns the archive key for id.
func (a *Archiver) ObjectKey(id uuid.UUID) string {
	return path.Join(a.prefix, id.String()+archiveExtension)
}

// Archive writes data under a new key. Failures are reported as
// dependency errors of the storage dependency.
func (a *Archiver) Archive(ctx context.Context, data []byte) (*interfaces.ArchivedImage, error) {
	start := time.Now()
	id := a.newID()
	key := a.ObjectKey(id)

	if err := a.backend.Store(ctx, key, data, ArchiveContentType); err != nil {
		return nil, interfaces.NewDependencyError(interfaces.DependencyStorage,
			fmt.Errorf("archive %s to %s: %w", key, a.backend.Name(), err))
	}

	a.log.Info("Archived image",
		slog.String("key", key),
		slog.String("backend", a.backend.Name()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.ArchivedImage{
		ID:          id,
		Key:         key,
		ContentType: ArchiveContentType,
		Size:        len(data),
	}, nil
}
