// Package common holds process-wide constants and logger setup shared by the
// binaries under cmd/.
package common

// PackageName is used as the namespace for exported metrics.
const PackageName = "deepfake"

// Version is overridden at build time with -ldflags "-X ...common.Version=...".
var Version = "dev"
