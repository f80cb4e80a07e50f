package forum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client submits topic requests to the forum service. The response body
// is passed through opaquely; the service's reply schema is its own
// business.
type Client struct {
	baseURL    string
	topicsPath string
	httpClient *http.Client
}

// NewClient creates a client for the forum service at baseURL.
// topicsPath is the topic-creation endpoint, e.g. "/api/topics".
func NewClient(baseURL, topicsPath string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		topicsPath: topicsPath,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client so callers can control
// timeouts and connection pooling.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// TopicsURL returns the full topic-creation URL.
func (c *Client) TopicsURL() string {
	return c.baseURL + c.topicsPath
}

// CreateTopic validates req locally and POSTs it to the topic-creation
// endpoint. A request that fails validation is never sent. Returns the
// HTTP status code; non-2xx responses also return an error carrying the
// response body.
func (c *Client) CreateTopic(ctx context.Context, req CreateTopicRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encoding topic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TopicsURL(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("posting topic: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("topic creation returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return resp.StatusCode, nil
}
