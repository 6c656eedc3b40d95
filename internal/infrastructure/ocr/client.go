package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/infrastructure/config"
)

const extractPath = "/api/ocr/extract"

// Client calls an HTTP OCR service to pull structured fields out of an
// uploaded accident document. Extraction is best-effort: callers treat any
// error as "no fields" and continue the interview without OCR answers.
type Client struct {
	baseURL    string
	enabled    bool
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an OCR client from OCR settings
func NewClient(cfg config.OCRConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		enabled: cfg.Enabled,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("ocr"),
	}
}

// Enabled reports whether extraction is configured
func (c *Client) Enabled() bool {
	return c.enabled
}

type extractRequest struct {
	ImageBase64 string `json:"image_base64"`
	ContentType string `json:"content_type"`
}

type extractResponse struct {
	Success bool              `json:"success"`
	Fields  map[string]string `json:"fields"`
	Message string            `json:"message,omitempty"`
}

// Extract sends the image and returns the extracted fields keyed by field
// name (name, id_number, plate_number, insurer and so on). A disabled client
// returns an empty map without calling out.
func (c *Client) Extract(ctx context.Context, image []byte, contentType string) (map[string]string, error) {
	if !c.enabled {
		return map[string]string{}, nil
	}

	body, err := json.Marshal(extractRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ocr: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr: unexpected status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("ocr: failed to parse response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("ocr: extraction rejected: %s", parsed.Message)
	}

	fields := make(map[string]string, len(parsed.Fields))
	for k, v := range parsed.Fields {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		fields[k] = v
	}

	c.logger.Debug("extracted document fields", zap.Int("count", len(fields)))
	return fields, nil
}
