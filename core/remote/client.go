package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"metadata-sync/core/retry"
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned for 409 responses.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPermission is returned for 401 and 403 responses.
	ErrPermission = errors.New("permission denied")
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes to sentinel errors.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrAlreadyExists
	}
	return nil
}

// Options configures a Client.
type Options struct {
	// BaseURL is prepended to every request path.
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds a single request (default 30s).
	Timeout time.Duration
	// UserAgent defaults to "metadata-sync/1.0".
	UserAgent string
	// Transport allows injecting a custom round tripper.
	Transport http.RoundTripper
}

// Client sends JSON requests to one service.
type Client struct {
	base       string
	token      string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client for opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, retry.ConfigError(fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "metadata-sync/1.0"
	}
	return &Client{
		base:      strings.TrimSuffix(opts.BaseURL, "/"),
		token:     opts.Token,
		userAgent: opts.UserAgent,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
	}, nil
}

// Do sends one request. A non-nil in is encoded as the JSON body. The raw response body
// is returned for 2xx responses; every error is classified as transient or permanent.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, retry.Permanent(fmt.Errorf("marshal body: %w", err))
		}
		body = bytes.NewReader(data)
	}

	fullURL := c.base + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		return nil, retry.Transient(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, classify(&HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))})
}

// DoJSON is Do followed by decoding the response into out when out is non-nil.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	data, err := c.Do(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return retry.Permanent(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

func classify(err *HTTPError) error {
	if err.StatusCode == http.StatusTooManyRequests || err.StatusCode >= 500 {
		return retry.Transient(err)
	}
	return retry.Permanent(err)
}
