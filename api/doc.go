/*
Package api provides the HTTP surface of the deepfake detection upload service.

This package is organized into two subpackages:

1. handlers - Request decoding and the upload pipeline
2. clients - Client library for calling the upload API

The package itself holds the wire types, CORS header values and server configuration
shared by both.

# Upload Pipeline

A POST /upload request carries a JSON body with a base64 encoded image. The handler:

- Validates the body and decodes the image
- Fetches the detection API credential from the secret store
- Sends the image to the detection service and removes the echoed "image" key
- Archives the raw bytes as raw/<uuid>.jpg with content type image/jpeg
- Returns the redacted detection result

Every response, including errors, carries the same fixed CORS headers.

# Status Codes

  - 200 - Analysis complete, body {"message": ..., "detection_result": {...}}
  - 400 - Malformed body, missing image or undecodable base64, body {"error": ...}
  - 500 - Secret store, detection service or archive failure, body {"error": "Analysis failed"}
*/
package api
