/*
Package handlers implements request processing for the deepfake upload API.

# Upload Pipeline

UploadHandler serves POST /upload and runs every request through the same
sequence:

1. Decode - parse the JSON body and base64-decode the "image" field
2. Credential - fetch the detection-service credential from the secret store
3. Detection - submit the image to the classifier and redact the echoed image
4. Archive - write the raw bytes to object storage under raw/<uuid>.jpg

A failed stage ends the request. Nothing past the decoder runs for an invalid
body, and nothing is archived unless detection succeeded.

# Responses

  - 200 {"message": "Analysis complete", "detection_result": {...}}
  - 400 {"error": "No image provided"}, "Invalid request body" or "Invalid image encoding"
  - 500 {"error": "Analysis failed"}

Dependency errors are logged with full detail and reported to Sentry, while
the caller only ever sees the generic 500 body. Every /upload response carries
the fixed CORS header set, and OPTIONS /upload answers the browser preflight.

# Credential Rotation

When the classifier answers 401 or 403 the handler invalidates the credential
provider, so a cached credential is refetched on the next request.

# Observability

Each stage runs in its own OpenTelemetry span and is recorded in the
deepfake_stage_duration_seconds and deepfake_stage_failures_total metrics.
*/
package handlers
