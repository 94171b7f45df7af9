// Package upstream provides the HTTP client for the OpenAI-compatible
// provider API this plugin bridges to.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// Client talks to one OpenAI-compatible endpoint with one bearer credential.
// Handlers construct a fresh Client per request from the current configuration
// snapshot, so a Client never outlives the config it was built from.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the provider API.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a Client with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Response is the raw outcome of an upstream call. Status and Body are
// returned for every completed HTTP exchange, success or not; classification
// of non-200 statuses is the caller's job.
type Response struct {
	Status  int
	Body    []byte
	Latency time.Duration
}

// ChatCompletion forwards an already-serialized completion request body to
// <baseURL>/chat/completions. The body is relayed byte-for-byte; the plugin
// adds only the auth and content-type headers.
func (c *Client) ChatCompletion(ctx context.Context, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/chat/completions", body)
}

// ListModels issues the synthetic GET <baseURL>/models call used by the
// connectivity probe and the health check.
func (c *Client) ListModels(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/models", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("provider request failed after %s: %w", latency.Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	return &Response{
		Status:  resp.StatusCode,
		Body:    respBody,
		Latency: latency,
	}, nil
}

// IsTimeout reports whether a transport error from Client was a timeout, as
// opposed to any other connection failure. Timeouts map to their own error
// code; everything else surfaces as an internal failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
