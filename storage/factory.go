package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/echefulouis/DeepFake/interfaces"
)

const defaultS3Region = "us-east-1"

// StorageBackendFactory creates archive backends from location URIs and
// combines several of them into a mirrored backend.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create archive backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageBackendFactory{log: logger}
}

// StorageBackendFor creates an archive backend from a location.
//
// Supported schemes:
//   - s3:// - Amazon S3 or compatible object storage
//   - file:// - Local filesystem storage
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.ArchiveBackend, error) {
	switch {
	case location.IsS3():
		return sf.createS3Backend(location)
	case location.IsFile():
		return sf.createFileBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMirroredBackend creates a backend that writes every object to all
// the given locations. Locations that fail to initialize are skipped.
// A single valid location is returned as is.
func (sf *StorageBackendFactory) CreateMirroredBackend(locations []interfaces.StorageBackendLocation) (interfaces.ArchiveBackend, error) {
	backends := make([]interfaces.ArchiveBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	switch len(backends) {
	case 0:
		return nil, fmt.Errorf("no valid storage backends created")
	case 1:
		return backends[0], nil
	default:
		return NewMirroredBackend(backends, sf.log), nil
	}
}

// createS3Backend creates an S3 or S3-compatible archive backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/[prefix/]?region=us-west-2&endpoint=http://minio:9000
// Without embedded keys the default AWS credential chain is used.
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.ArchiveBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", location.Host))

	prefix := strings.Trim(location.Path, "/")

	region := location.GetParam("region")
	if region == "" {
		region = defaultS3Region
	}
	endpoint := location.GetParam("endpoint")

	accessKey, secretKey := location.Credentials()
	if accessKey != "" {
		sf.log.Debug("Using embedded S3 credentials")
	}

	return NewS3Backend(location.Host, prefix, region, endpoint, accessKey, secretKey, sf.log)
}

// createFileBackend creates a file system archive backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.ArchiveBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewFileBackend(path, sf.log)
}
