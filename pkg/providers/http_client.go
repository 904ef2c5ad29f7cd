package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPClient is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, timeout handling, and classified error
// mapping. Each upstream call is a single attempt: retrying against the
// next candidate is the dispatcher's job, so the client itself never
// retries or backs off.
//
// Concrete adapters (anthropic, openai) embed this struct and implement
// the Adapter interface on top of it.
type HTTPClient struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client
}

// NewHTTPClient creates a new base upstream client with connection pooling.
func NewHTTPClient(config ProviderConfig) *HTTPClient {
	config.ApplyDefaults()

	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
	}
}

// Name returns the provider's configured name.
func (c *HTTPClient) Name() string {
	return c.config.Name
}

// Kind returns the provider's wire dialect.
func (c *HTTPClient) Kind() Kind {
	return c.config.Kind
}

// Config returns the provider's configuration.
func (c *HTTPClient) Config() ProviderConfig {
	return c.config
}

// Do performs one HTTP request against the provider and classifies any
// failure. On success the response body is left open for the caller.
//
// Error mapping: 401/403 become AuthError, 429 becomes RateLimitError with
// the parsed Retry-After, any other non-2xx becomes ProviderError with the
// status code, and a cancelled or expired context becomes TimeoutError.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.DebugContext(ctx, "sending upstream request",
		"provider", c.config.Name,
		"method", method,
		"url", url,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, &TimeoutError{
				Provider: c.config.Name,
				Timeout:  c.config.RequestTimeout,
			}
		}
		return nil, &ProviderError{
			Provider: c.config.Name,
			Message:  "upstream request failed",
			Cause:    err,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{
			Provider: c.config.Name,
			Message:  string(errorBody),
		}

	case http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Provider:   c.config.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    string(errorBody),
		}

	default:
		return nil, &ProviderError{
			Provider:   c.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
	}
}

// DoJSON performs a JSON request and decodes the response body.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: c.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    c.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close releases idle connections. The client must not be used after Close.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	slog.Debug("provider client closed", "provider", c.config.Name)
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
