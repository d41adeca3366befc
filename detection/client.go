package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/go-resty/resty/v2"
)

const (
	// DefaultEndpoint is NVIDIA's hosted deepfake image classifier.
	DefaultEndpoint = "https://ai.api.nvidia.com/v1/cv/hive/deepfake-image-detection"

	// DefaultTimeout bounds the single detection attempt.
	DefaultTimeout = 30 * time.Second

	// inputPrefix is prepended to the payload regardless of the actual image format.
	inputPrefix = "data:image/png;base64,"
)

type detectRequest struct {
	Input []string `json:"input"`
}

// Client calls the detection service. It makes exactly one attempt per call.
type Client struct {
	http     *resty.Client
	endpoint string
	log      *slog.Logger
}

// NewClient creates a detection client. Zero values select DefaultEndpoint and DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(restyLogger{log: log})

	return &Client{
		http:     httpClient,
		endpoint: endpoint,
		log:      log,
	}
}

// Detect submits imageBase64 and returns the redacted classifier result.
func (c *Client) Detect(ctx context.Context, imageBase64 string, credential string) (interfaces.DetectionResult, error) {
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(credential).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(detectRequest{Input: []string{inputPrefix + imageBase64}}).
		Post(c.endpoint)
	if err != nil {
		return nil, interfaces.NewDependencyError(interfaces.DependencyDetection,
			fmt.Errorf("request failed: %w", err))
	}

	status := resp.StatusCode()
	if !resp.IsSuccess() {
		err := fmt.Errorf("unexpected status %d", status)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			err = fmt.Errorf("%w: status %d", interfaces.ErrCredentialRejected, status)
		}
		c.log.Warn("Detection service returned error status",
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)))
		return nil, interfaces.NewDependencyError(interfaces.DependencyDetection, err)
	}

	result, err := decodeResult(resp.Body())
	if err != nil {
		return nil, interfaces.NewDependencyError(interfaces.DependencyDetection, err)
	}
	Redact(result)

	c.log.Info("Detection complete",
		slog.Int("status", status),
		slog.Any("detection_result", map[string]any(result)),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// decodeResult parses a JSON object, keeping numbers as they were written.
func decodeResult(body []byte) (interfaces.DetectionResult, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON response: trailing data")
	}

	object, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return interfaces.DetectionResult(object), nil
}
