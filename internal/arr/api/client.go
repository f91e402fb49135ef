// Package api is the HTTP/JSON transport shared by the *arr backend clients.
package api

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

	"github.com/arrmate/arrmate/internal/arr/types"
)

const defaultTimeout = 30 * time.Second

// AuthStyle selects how the api key is sent.
type AuthStyle int

const (
	AuthHeader AuthStyle = iota // X-Api-Key header (Sonarr, Radarr, Lidarr, Readarr, Whisparr)
	AuthBearer                  // Authorization: Bearer (Audiobookshelf)
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("API returned status %d for %s %s: %s", e.StatusCode, e.Method, e.Path, body)
}

// Unwrap maps well-known status codes onto the backend sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return types.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.ErrUnauthorized
	default:
		return nil
	}
}

// Client performs authenticated JSON requests against one service.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	headerName string
	auth       AuthStyle
}

// Option configures a Client.
type Option func(*Client)

// WithAuth selects the authentication style.
func WithAuth(style AuthStyle) Option {
	return func(c *Client) { c.auth = style }
}

// WithHeaderName overrides the api key header name (Bazarr uses X-API-KEY).
func WithHeaderName(name string) Option {
	return func(c *Client) { c.headerName = name }
}

// New creates a transport for the service at baseURL.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		http:       &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		headerName: "X-Api-Key",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get decodes the JSON response of GET path?query into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON and decodes the response into out (may be nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Delete issues DELETE path?query.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) error {
	return c.Do(ctx, http.MethodDelete, path, query, nil, nil)
}

// Do performs a request. A nil out discards the response body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey == "" {
		return
	}
	switch c.auth {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	default:
		req.Header.Set(c.headerName, c.apiKey)
	}
}
