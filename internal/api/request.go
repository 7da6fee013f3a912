package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rickgao/ratehub/internal/metrics"
)

// APIError represents a non-2xx response from the vendor.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vendor api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// doRequest performs a single HTTP request.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	// The vendor reports some failures, rate limiting included, in a 200 body.
	if err := inBandError(bytes.TrimSpace(body)); err != nil {
		return nil, err
	}

	return body, nil
}

// retryable reports whether err is worth another attempt: 429, 5xx, and transport
// failures (including per-request timeouts). Cancellation of the caller's context
// is not retried.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	// Decoding problems are never transient.
	var syntaxErr *json.SyntaxError
	return !errors.As(err, &syntaxErr)
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			// Add jitter: backoff * (0.75 to 1.25)
			wait := backoff
			if backoff > 0 {
				wait = backoff*3/4 + time.Duration(rand.Int64N(int64(backoff)/2+1))
			}
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", wait,
				"path", path,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, method, path, cloneQuery(query))
		if err == nil {
			metrics.RequestAttempts.WithLabelValues("ok").Inc()
			return body, nil
		}

		lastErr = err

		if !retryable(ctx, err) {
			metrics.RequestAttempts.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.RequestAttempts.WithLabelValues("retry").Inc()
	}

	return nil, fmt.Errorf("max attempts exceeded: %w", lastErr)
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q)+1)
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// get performs a GET request with retries and returns the raw body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.doWithRetry(ctx, http.MethodGet, path, query)
}
