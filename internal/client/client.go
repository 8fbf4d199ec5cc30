package client

import (
	"authenta/internal/config"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	headerClientID     = "x-client-id"
	headerClientSecret = "x-client-secret"

	// maxErrorBody caps how much of a failed response is kept in APIError.
	maxErrorBody = 64 << 10
)

// Client talks to the Authenta REST API. It is safe for concurrent use and
// holds no state beyond the reused connection pool.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// New creates a Client. httpClient may be nil, in which case one with a 60s
// timeout is created.
func New(baseURL, clientID, clientSecret string, httpClient *http.Client) (*Client, error) {
	cfg := &config.Config{BaseURL: baseURL, ClientID: clientID, ClientSecret: clientSecret}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}, nil
}

// NewFromConfig creates a Client from the loaded configuration.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	return New(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, &http.Client{Timeout: cfg.HTTPTimeout})
}

// BaseURL returns the API root every relative path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues an authenticated GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues an authenticated POST with body encoded as JSON. A nil body
// sends no payload. out may be nil when the response is not needed.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// GetRaw issues an authenticated GET and returns the undecoded 2xx body.
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Fetch issues an unauthenticated GET against an absolute (pre-signed) URL.
// The caller owns the returned response body. Non-2xx responses are returned
// as-is so the caller can apply its own status policy.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: rawURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: rawURL, Err: err}
	}
	return resp, nil
}

// Put streams body to an absolute (pre-signed) URL without credential headers
// and returns the response status code.
func (c *Client) Put(ctx context.Context, rawURL string, body io.Reader, size int64, contentType string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, body)
	if err != nil {
		return 0, &TransportError{Op: http.MethodPut, URL: rawURL, Err: err}
	}
	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransportError{Op: http.MethodPut, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &TransportError{Op: method, URL: target, Err: err}
	}
	req.Header.Set(headerClientID, c.clientID)
	req.Header.Set(headerClientSecret, c.clientSecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: method, URL: target, Err: err}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{URL: target, Err: err}
	}
	return nil
}

func (c *Client) resolve(path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if u.IsAbs() || u.Host != "" {
		return "", fmt.Errorf("%w: %s", ErrAbsoluteURL, path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path, nil
}
