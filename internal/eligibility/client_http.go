package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"trialgate/pkg/platform/sentinel"
)

// HTTPClient implements Client against the IP2Location.io JSON API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// HTTPClientOption configures the HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// NewHTTPClient creates a new IP2Location.io-backed lookup client.
// An empty apiKey is allowed; the provider serves a limited free tier
// for keyless requests.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorEnvelope is the provider's error response body.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_message"`
	} `json:"error"`
}

// Lookup queries the provider for a single IP address.
//
// Errors: wraps sentinel.ErrUnavailable on transport failures, timeouts,
// non-2xx statuses, and undecodable bodies.
func (c *HTTPClient) Lookup(ctx context.Context, ip string) (*LookupResult, error) {
	query := url.Values{}
	query.Set("ip", ip)
	query.Set("format", "json")
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("lookup %s timed out: %w", ip, sentinel.ErrUnavailable)
		}
		return nil, fmt.Errorf("lookup %s: %v: %w", ip, err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read lookup response: %w", sentinel.ErrUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			return nil, fmt.Errorf("lookup %s: provider error %d: %s: %w",
				ip, envelope.Error.Code, envelope.Error.Message, sentinel.ErrUnavailable)
		}
		return nil, fmt.Errorf("lookup %s: unexpected status %d: %w", ip, resp.StatusCode, sentinel.ErrUnavailable)
	}

	var result LookupResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode lookup response: %v: %w", err, sentinel.ErrUnavailable)
	}
	// Some provider plans return the error envelope with a 200 status.
	if result.IP == "" {
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			return nil, fmt.Errorf("lookup %s: provider error %d: %s: %w",
				ip, envelope.Error.Code, envelope.Error.Message, sentinel.ErrUnavailable)
		}
	}
	return &result, nil
}
