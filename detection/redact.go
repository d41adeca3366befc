package detection

import "github.com/echefulouis/DeepFake/interfaces"

// RedactedKey is the field the classifier uses to echo the submitted image.
const RedactedKey = "image"

// Redact removes the echoed image from a classifier result in place and
// returns it. Redacting an already redacted result is a no-op.
func Redact(result interfaces.DetectionResult) interfaces.DetectionResult {
	delete(result, RedactedKey)
	return result
}
