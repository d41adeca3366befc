// Package interfaces defines the core interfaces and types of the deepfake
// upload service, separating interface definitions from implementations.
//
// # Pipeline Interfaces
//
// CredentialProvider: Resolves the bearer credential for the detection service
// from a secret store, with optional caching and invalidation.
//
// Detector: Submits one base64-encoded image to the external classifier and
// returns its redacted result.
//
// ImageArchiver: Persists the raw image bytes under a freshly generated key.
//
// # Storage Interfaces
//
// ArchiveBackend: Write-once object storage (S3, local files, or a mirror of several).
//
// StorageBackendFactory: Creates archive backends from location URIs.
//
// # Errors
//
// Failures are classified once, at the point they happen:
//
// - ValidationError: bad caller input, served as HTTP 400 with its Message
// - DependencyError: secret store, classifier or archive failure, served as a generic HTTP 500
//
// Both implement errors.Is against ErrValidation and ErrDependency respectively.
// ErrCredentialRejected additionally marks classifier answers of 401 and 403.
package interfaces
