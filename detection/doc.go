// Package detection is the client for the external deepfake classifier.
//
// A request carries the bearer credential and the image as a data URI:
//
//	POST https://ai.api.nvidia.com/v1/cv/hive/deepfake-image-detection
//	Authorization: Bearer <credential>
//
//	{"input": ["data:image/png;base64,<data>"]}
//
// The response object is returned with its "image" field removed. Any
// transport failure, non-2xx status or non-object body is reported as an
// interfaces.DependencyError; 401 and 403 additionally match
// interfaces.ErrCredentialRejected.
package detection
