package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend implements an archive backend using the local file system.
// It is meant for development and tests; keys map to paths below baseDir.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file archive backend using the specified base directory.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Store writes data to baseDir/key. The content type is not persisted.
func (b *FileBackend) Store(ctx context.Context, key string, data []byte, contentType string) error {
	filePath, err := b.getFilePath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored object in file",
		slog.String("path", filePath),
		slog.String("content_type", contentType),
		slog.Int("size", len(data)))

	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// getFilePath resolves key below baseDir and refuses keys escaping it.
func (b *FileBackend) getFilePath(key string) (string, error) {
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(b.baseDir, filePath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filePath, nil
}
