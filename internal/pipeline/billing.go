package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SubmitBillRequest is the payload for a first-time billing submission
type SubmitBillRequest struct {
	AttachmentID uint            `json:"attachmentId"`
	BusinessID   string          `json:"businessId"`
	DocumentType string          `json:"documentType"`
	Phone        string          `json:"phone,omitempty"`
	MPRN         string          `json:"mprn,omitempty"`
	MCCType      string          `json:"mccType,omitempty"`
	DGType       string          `json:"dgType,omitempty"`
	GPRN         string          `json:"gprn,omitempty"`
	ParsedData   json.RawMessage `json:"parsedData,omitempty"`
}

// ResendRequest is the payload for re-submitting a failed submission.
// Fields carries the manual payload override, when one was saved.
type ResendRequest struct {
	SubmissionID uint            `json:"submissionId"`
	Fields       json.RawMessage `json:"fields,omitempty"`
}

// BillingResult is the recorded outcome of a billing call. A rejected
// submission is a result, not a Go error; transport failures are errors.
type BillingResult struct {
	Success    bool
	HTTPStatus int
	Error      string
	Body       json.RawMessage
}

// BillingClient talks to the external billing reconciliation API
type BillingClient interface {
	Submit(ctx context.Context, req SubmitBillRequest) (*BillingResult, error)
	Resend(ctx context.Context, req ResendRequest) (*BillingResult, error)
}

// httpBillingClient implements BillingClient over HTTP
type httpBillingClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPBillingClient creates a BillingClient for the given base URL
func NewHTTPBillingClient(baseURL, apiKey string, timeout time.Duration) BillingClient {
	return &httpBillingClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Submit sends a first-time submission
func (b *httpBillingClient) Submit(ctx context.Context, req SubmitBillRequest) (*BillingResult, error) {
	return b.post(ctx, "/submissions", req)
}

// Resend re-submits a previously failed submission
func (b *httpBillingClient) Resend(ctx context.Context, req ResendRequest) (*BillingResult, error) {
	return b.post(ctx, "/submissions/resend", req)
}

func (b *httpBillingClient) post(ctx context.Context, path string, payload any) (*BillingResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal billing request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build billing request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("billing service unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read billing response: %w", err)
	}

	result := &BillingResult{
		HTTPStatus: resp.StatusCode,
		Body:       respBody,
	}

	// The billing API answers {success, error} on both 2xx and 4xx
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &envelope); err == nil {
		result.Success = envelope.Success
		result.Error = envelope.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Success = false
		if result.Error == "" {
			result.Error = fmt.Sprintf("billing service returned %d", resp.StatusCode)
		}
	}

	return result, nil
}
