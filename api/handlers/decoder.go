package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/echefulouis/DeepFake/interfaces"
)

// DecodeUpload validates an upload body and decodes the image.
// It never touches the network; every failure is an *interfaces.ValidationError.
func DecodeUpload(body []byte) (*interfaces.DecodedImage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, interfaces.NewValidationError(interfaces.MsgInvalidRequestBody, errors.New("body is not a JSON object"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, interfaces.NewValidationError(interfaces.MsgInvalidRequestBody, err)
	}

	raw, ok := fields["image"]
	if !ok || string(raw) == "null" {
		return nil, interfaces.NewValidationError(interfaces.MsgNoImage, nil)
	}

	var image string
	if err := json.Unmarshal(raw, &image); err != nil {
		return nil, interfaces.NewValidationError(interfaces.MsgInvalidRequestBody, fmt.Errorf("image is not a string: %w", err))
	}

	image = stripDataURI(strings.TrimSpace(image))
	if image == "" {
		return nil, interfaces.NewValidationError(interfaces.MsgNoImage, nil)
	}

	decoded, err := decodeBase64(image)
	if err != nil {
		return nil, interfaces.NewValidationError(interfaces.MsgInvalidImage, err)
	}
	if len(decoded) == 0 {
		return nil, interfaces.NewValidationError(interfaces.MsgNoImage, nil)
	}

	return &interfaces.DecodedImage{Base64: image, Raw: decoded}, nil
}

// ReadUpload reads at most maxBytes of the request body and decodes it.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*interfaces.DecodedImage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		return nil, interfaces.NewValidationError(interfaces.MsgInvalidRequestBody, fmt.Errorf("read body: %w", err))
	}
	return DecodeUpload(body)
}

// stripDataURI drops a "data:<mime>;base64," prefix.
func stripDataURI(image string) string {
	if !strings.HasPrefix(image, "data:") {
		return image
	}
	if _, payload, ok := strings.Cut(image, ";base64,"); ok {
		return payload
	}
	return image
}

// decodeBase64 accepts padded and unpadded standard base64.
func decodeBase64(image string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(image); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(image)
}
