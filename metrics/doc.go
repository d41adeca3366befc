// Package metrics defines the Prometheus collectors of the upload service
// and the server that exposes them on a separate listen address.
package metrics
