package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/echefulouis/DeepFake/api"
	"github.com/go-resty/resty/v2"
)

// DeepfakeThreshold separates deepfake from authentic bounding boxes.
const DeepfakeThreshold = 0.5

// UploadClient submits images to POST /upload.
type UploadClient struct {
	http *resty.Client
}

// NewUploadClient creates a client for the service at serverAddr.
func NewUploadClient(serverAddr string, timeout time.Duration) *UploadClient {
	return &UploadClient{
		http: resty.New().
			SetBaseURL(serverAddr).
			SetTimeout(timeout),
	}
}

// UploadError is returned for any non-200 answer.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed with status %d: %s", e.StatusCode, e.Message)
}

// Upload base64-encodes image and returns the service response.
func (c *UploadClient) Upload(ctx context.Context, image []byte) (*api.UploadResponse, error) {
	var result api.UploadResponse
	var failure api.ErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(api.UploadRequest{Image: base64.StdEncoding.EncodeToString(image)}).
		SetResult(&result).
		SetError(&failure).
		Post("/upload")
	if err != nil {
		return nil, fmt.Errorf("could not request upload endpoint: %w", err)
	}
	if resp.IsError() {
		message := failure.Error
		if message == "" {
			message = string(resp.Body())
		}
		return nil, &UploadError{StatusCode: resp.StatusCode(), Message: message}
	}

	return &result, nil
}

// Verdict is the classification of one detected face.
type Verdict struct {
	IsDeepfake  float64
	Deepfake    bool
	Confidence  float64
	BoundingBox []float64
}

// Label returns DEEPFAKE or AUTHENTIC.
func (v Verdict) Label() string {
	if v.Deepfake {
		return "DEEPFAKE"
	}
	return "AUTHENTIC"
}

type detectionPayload struct {
	Data []struct {
		BoundingBoxes []struct {
			IsDeepfake  float64   `json:"is_deepfake"`
			BoundingBox []float64 `json:"bounding_box"`
		} `json:"bounding_boxes"`
	} `json:"data"`
}

// Verdicts extracts per-face verdicts from the first entry of detection_result.data.
// Confidence is the probability of the reported label.
func Verdicts(resp *api.UploadResponse) ([]Verdict, error) {
	raw, err := json.Marshal(resp.DetectionResult)
	if err != nil {
		return nil, err
	}

	var payload detectionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unexpected detection result: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("detection result has no data")
	}

	boxes := payload.Data[0].BoundingBoxes
	verdicts := make([]Verdict, 0, len(boxes))
	for _, box := range boxes {
		v := Verdict{
			IsDeepfake:  box.IsDeepfake,
			Deepfake:    box.IsDeepfake > DeepfakeThreshold,
			BoundingBox: box.BoundingBox,
		}
		v.Confidence = box.IsDeepfake
		if !v.Deepfake {
			v.Confidence = 1 - box.IsDeepfake
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}
