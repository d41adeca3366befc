package api

// Response messages returned by POST /upload.
const (
	MessageAnalysisComplete = "Analysis complete"
	MessageAnalysisFailed   = "Analysis failed"
)

// CORS headers attached to every /upload response. The advertised methods
// deliberately stay OPTIONS,GET even though uploads are POSTed; browsers do
// not consult this header on simple responses.
const (
	CORSAllowOrigin      = "*"
	CORSAllowHeaders     = "Content-Type,Authorization,X-Amz-Date,X-Api-Key,X-Amz-Security-Token"
	CORSAllowMethods     = "OPTIONS,GET"
	CORSAllowCredentials = "true"

	// CORSPreflightMaxAge is the preflight cache lifetime in seconds.
	CORSPreflightMaxAge = 300
)

// UploadRequest is the body of POST /upload.
type UploadRequest struct {
	// Image is the base64-encoded PNG or JPEG, optionally as a data URI.
	Image string `json:"image"`
}

// UploadResponse is returned with HTTP 200.
type UploadResponse struct {
	Message         string         `json:"message"`
	DetectionResult map[string]any `json:"detection_result"`
}

// ErrorResponse is returned with HTTP 400 and 500.
type ErrorResponse struct {
	Error string `json:"error"`
}
