// Package main (cmd/httpserver) runs the deepfake upload server.
//
// The server accepts base64-encoded images on POST /upload, resolves the
// detection API key from AWS Secrets Manager or Vault, forwards the image to
// the NVIDIA deepfake classifier and archives the raw bytes in S3 under
// raw/<uuid>.jpg before returning the classifier's verdict.
//
// Every flag can also be set through its environment variable. A .env file
// in the working directory, or the file given with --env-file, is loaded
// first; variables already set in the environment take precedence.
//
// Example usage against AWS:
//
//	deepfake-server --listen-addr=0.0.0.0:8080 \
//	    --bucket=deepfake-images \
//	    --api-secret-arn=arn:aws:secretsmanager:us-east-1:123456789012:secret:nvidia-api-key
//
// Example usage against MinIO and a local Vault:
//
//	VAULT_TOKEN=dev-root deepfake-server \
//	    --archive-location='s3://minio:minio123@deepfake-images/?region=us-east-1&endpoint=http://127.0.0.1:9000' \
//	    --api-secret-arn='vault://127.0.0.1:8200/secret/deepfake?tls=false' \
//	    --secret-cache-ttl=5m
//
// The server shuts down gracefully on SIGINT/SIGTERM and serves health
// checks, Prometheus metrics on --metrics-addr and optional pprof endpoints.
package main
