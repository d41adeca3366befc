package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// DecodedImage is an upload request that passed validation.
type DecodedImage struct {
	// Base64 is the normalized payload forwarded to the detection service.
	Base64 string

	// Raw is the decoded image handed to the archiver.
	Raw []byte
}

// DetectionResult is the classifier's JSON object, re-served to the caller
// after redaction.
type DetectionResult map[string]any

// ArchivedImage describes one object written by the archiver.
type ArchivedImage struct {
	ID          uuid.UUID
	Key         string
	ContentType string
	Size        int
}

// CredentialProvider returns the bearer credential for the detection service.
type CredentialProvider interface {
	// Credential fetches the current credential. Failures are DependencyErrors.
	Credential(ctx context.Context) (string, error)

	// Invalidate drops any cached value so that the next call refetches.
	Invalidate()

	// Name returns identifier for logging.
	Name() string
}

// Detector submits one image to the external classifier.
type Detector interface {
	// Detect returns the redacted classifier response for a base64 image.
	Detect(ctx context.Context, imageBase64 string, credential string) (DetectionResult, error)
}

// ImageArchiver persists raw image bytes under a freshly generated key.
type ImageArchiver interface {
	Archive(ctx context.Context, data []byte) (*ArchivedImage, error)
}
