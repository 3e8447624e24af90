// Package payment wraps the external payment gateway behind a small client
// interface. Only intent creation and webhook signature verification live
// here; the gateway's own protocol is out of scope for the core.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Gateway is the boundary the booking service talks to. Implemented by
// Client in production and by a stub in tests.
type Gateway interface {
	CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error)
	VerifySignature(payload []byte, signature string) bool
}

// IntentRequest asks the gateway to prepare a charge. Amount is in minor
// currency units.
type IntentRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ReferenceID string `json:"referenceId"`
}

// IntentResponse is the gateway's handle for the prepared charge.
type IntentResponse struct {
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
	Error        string `json:"error,omitempty"`
}

// Client calls the gateway's HTTP API.
type Client struct {
	apiURL        string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a new gateway client.
func NewClient(apiURL, apiKey, webhookSecret string, opts ...ClientOption) *Client {
	c := &Client{
		apiURL:        apiURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateIntent asks the gateway to prepare a charge and returns its handle.
func (c *Client) CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid intent request: amount must be positive")
	}
	if req.Currency == "" {
		return nil, fmt.Errorf("invalid intent request: currency is required")
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intent request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/intents", c.apiURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	var intentResp IntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intentResp); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if intentResp.Error != "" {
			return nil, fmt.Errorf("gateway rejected intent with status %d: %s", resp.StatusCode, intentResp.Error)
		}
		return nil, fmt.Errorf("gateway rejected intent with status %d", resp.StatusCode)
	}
	return &intentResp, nil
}

// VerifySignature checks a webhook payload against its HMAC-SHA256
// signature header.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
