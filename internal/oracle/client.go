package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/classnest/classnest-api/pkg/config"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

// Client calls the external document-understanding service. The service takes
// a document plus task instructions and answers with free-form text; it
// enforces no schema, so everything it returns is treated as untrusted.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
}

// NewClient builds an oracle client from configuration.
func NewClient(cfg config.OracleConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: timeout,
		http:    &http.Client{},
	}
}

type extractRequest struct {
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
	Document     string `json:"document"`
}

type extractResponse struct {
	Text string `json:"text"`
}

// Extract submits the document and instructions and returns the raw response
// text. The call is bounded by the configured timeout on top of whatever
// deadline the caller context already carries; any transport failure or
// non-2xx answer surfaces as EXTRACTION_UNAVAILABLE.
func (c *Client) Extract(ctx context.Context, document []byte, instructions string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(extractRequest{
		Model:        c.model,
		Instructions: instructions,
		Document:     base64.StdEncoding.EncodeToString(document),
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode extraction request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build extraction request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrExtractionUnavailable.Code, appErrors.ErrExtractionUnavailable.Status, appErrors.ErrExtractionUnavailable.Message)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", appErrors.Wrap(fmt.Errorf("oracle returned status %d", resp.StatusCode), appErrors.ErrExtractionUnavailable.Code, appErrors.ErrExtractionUnavailable.Status, appErrors.ErrExtractionUnavailable.Message)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrExtractionUnavailable.Code, appErrors.ErrExtractionUnavailable.Status, appErrors.ErrExtractionUnavailable.Message)
	}

	var out extractResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrExtractionUnavailable.Code, appErrors.ErrExtractionUnavailable.Status, "oracle response envelope malformed")
	}
	return out.Text, nil
}
