// Package storage archives uploaded images in object storage with pluggable backends.
//
// Every accepted upload is written once under a fresh random key:
//
//	raw/<uuid>.jpg
//
// The prefix is configurable. Objects are tagged image/jpeg and are never
// read back by this service.
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - s3://deepfake-images/?region=us-east-1
//   - s3://ACCESS:SECRET@deepfake-images/tenant-a/?region=us-east-1&endpoint=http://minio:9000
//   - file:///var/lib/deepfake/archive/
//
// # S3 Storage
//
// The S3Backend uses the AWS SDK. Without credentials in the URI the default
// AWS chain applies, which covers environment variables, shared profiles and
// instance or task roles. Setting endpoint switches to path-style addressing
// for S3-compatible services.
//
// # Mirrored Storage
//
// Several locations can be combined with CreateMirroredBackend. The object is
// written to every available backend and the store succeeds if at least one
// of them accepted it.
//
//	factory := storage.NewStorageBackendFactory(logger)
//	backend, err := factory.CreateMirroredBackend(locations)
//	if err != nil {
//	    log.Fatalf("Failed to create archive backend: %v", err)
//	}
//	archiver := storage.NewArchiver(backend, "raw", logger)
//	archived, err := archiver.Archive(ctx, imageBytes)
package storage
