package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/ragcore/internal/metrics"
	"github.com/hyperjump/ragcore/internal/models"
)

// DefaultServerURL is where the commands look for a running server.
const DefaultServerURL = "http://localhost:8080"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the HTTP API.
type Client struct {
	baseURL  string
	callerID string
	http     *http.Client
}

// NewClient creates a client for baseURL. callerID, when set, is sent as X-Caller-ID.
func NewClient(baseURL, callerID string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		callerID: callerID,
		http:     &http.Client{Timeout: timeout},
	}
}

// Ingest posts a document.
func (c *Client) Ingest(ctx context.Context, in *models.DocumentInput) (*models.IngestResult, error) {
	var out models.IngestResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query runs a retrieval request.
func (c *Client) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	var out models.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/documents/"+url.PathEscape(id), nil, nil)
}

// Metrics fetches the metrics report.
func (c *Client) Metrics(ctx context.Context) (*metrics.Report, error) {
	var out metrics.Report
	if err := c.do(ctx, http.MethodGet, "/api/v1/metrics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches corpus counts.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.callerID != "" {
		req.Header.Set("X-Caller-ID", c.callerID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
