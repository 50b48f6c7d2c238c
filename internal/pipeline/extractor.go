package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/relaydesk/relaydesk-backend/internal/errors"
)

// ExtractRequest is the payload sent to the extraction service
type ExtractRequest struct {
	AttachmentID   uint   `json:"attachmentId"`
	MessageID      uint   `json:"messageId"`
	AttachmentURL  string `json:"attachmentUrl"`
	AttachmentType string `json:"attachmentType"`
	BusinessID     string `json:"businessId"`
	ForceReparse   bool   `json:"forceReparse"`
}

// ExtractResult is the extraction service response. Skipped means the
// service reused previously cached data instead of re-running the model.
type ExtractResult struct {
	ParsedData json.RawMessage `json:"parsed_data,omitempty"`
	Skipped    bool            `json:"skipped,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Extractor calls the remote AI extraction service
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error)
}

// httpExtractor implements Extractor over HTTP
type httpExtractor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExtractor creates an Extractor talking to the given base URL
func NewHTTPExtractor(baseURL string, timeout time.Duration) Extractor {
	return &httpExtractor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Extract posts the request and decodes the result. An error payload
// from the service and a transport failure surface identically: the
// caller only sees that extraction failed.
func (e *httpExtractor) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extract request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract-document", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build extract request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("extraction service unreachable: %w", apperrors.ErrExtractionFailed)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction response: %w", err)
	}

	var result ExtractResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("invalid extraction response: %w", apperrors.ErrExtractionFailed)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("%s: %w", result.Error, apperrors.ErrExtractionFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction service returned %d: %w", resp.StatusCode, apperrors.ErrExtractionFailed)
	}

	return &result, nil
}
