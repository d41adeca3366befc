package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks failures caused by the caller's input. They map to HTTP 400.
	ErrValidation = errors.New("validation error")

	// ErrDependency marks failures of the secret store, the detection service
	// or the object store. They map to HTTP 500 and are never retried inline.
	ErrDependency = errors.New("dependency error")

	// ErrCredentialRejected is reported alongside ErrDependency when the detection
	// service refuses the bearer credential (401/403).
	ErrCredentialRejected = errors.New("credential rejected")

	// ErrEmptySecret is returned when the secret store answers without a usable value.
	ErrEmptySecret = errors.New("empty secret value")
)

// Caller-facing validation messages.
const (
	MsgNoImage            = "No image provided"
	MsgInvalidRequestBody = "Invalid request body"
	MsgInvalidImage       = "Invalid image encoding"
)

// ValidationError carries the message returned to the caller verbatim.
type ValidationError struct {
	Message string
	Err     error
}

func NewValidationError(message string, err error) *ValidationError {
	return &ValidationError{Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Dependency names used in DependencyError and in metrics labels.
const (
	DependencySecretStore = "secret_store"
	DependencyDetection   = "detection"
	DependencyStorage     = "storage"
)

// DependencyError wraps a failure from an outbound collaborator. Its message
// is for server-side logs only.
type DependencyError struct {
	Dependency string
	Err        error
}

func NewDependencyError(dependency string, err error) *DependencyError {
	return &DependencyError{Dependency: dependency, Err: err}
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func (e *DependencyError) Is(target error) bool { return target == ErrDependency }
