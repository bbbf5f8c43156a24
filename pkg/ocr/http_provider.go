package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

// HTTPProvider talks to a tesseract-server style sidecar: multipart POST with
// the file plus an optional page selector, JSON text response.
type HTTPProvider struct {
	Endpoint string
	client   *http.Client
}

func NewHTTPProvider(endpoint string) Provider {
	return &HTTPProvider{
		Endpoint: endpoint,
		client:   &http.Client{},
	}
}

type recognizeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (p *HTTPProvider) Recognize(ctx context.Context, data []byte, mimeType string, page int) (string, error) {
	if p.Endpoint == "" {
		return "", fmt.Errorf("ocr engine not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "upload")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	_ = writer.WriteField("mime_type", mimeType)
	if page > 0 {
		_ = writer.WriteField("page", strconv.Itoa(page))
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr engine error (%d): %s", resp.StatusCode, string(respBytes))
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("ocr response malformed: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ocr engine: %s", parsed.Error)
	}
	return parsed.Text, nil
}
