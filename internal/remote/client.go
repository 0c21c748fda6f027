// Package remote contains the HTTP clients for the upstream configuration
// backend: the screens/navigation endpoint, the flat rules store, distro
// discovery, and help-center content saves.
package remote

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
	"strings"
	"time"

	"github.com/soneri/appcanvas/internal/config"
	"github.com/soneri/appcanvas/internal/observability"
	"github.com/soneri/appcanvas/model"
)

// Client is the shared transport for all upstream endpoints. Every request
// carries the fixed shared token, the session credential, and the
// session-derived seed; a session-invalid response triggers the registered
// unauthorized hook.
type Client struct {
	cfg     config.UpstreamConfig
	session model.Session
	http    *http.Client

	onUnauthorized func()
	observe        func(endpoint string, status int, duration time.Duration)
}

// NewClient creates an upstream client with connection pooling and the
// configured per-request timeout.
func NewClient(cfg config.UpstreamConfig, session model.Session) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		cfg:     cfg,
		session: session,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// OnUnauthorized registers the global handler invoked when the upstream
// rejects the session credential.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// WithObserver registers a telemetry sink called once per upstream request
// with the endpoint path, response status (0 on transport failure), and
// duration.
func (c *Client) WithObserver(fn func(endpoint string, status int, duration time.Duration)) {
	c.observe = fn
}

// do executes one request against the upstream, decoding a JSON response
// into out when out is non-nil. Idempotent methods are retried with
// exponential backoff per the retry config.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: marshal body: %w", err)
		}
	}

	maxAttempts := 1
	if isIdempotentMethod(method) && c.cfg.Retry.MaxAttempts > 1 {
		maxAttempts = c.cfg.Retry.MaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(c.cfg.Retry, attempt)
			select {
			case <-ctx.Done():
				return model.NewUpstreamTimeoutError()
			case <-time.After(delay):
			}
			slog.Debug("remote: retrying", "method", method, "path", path, "attempt", attempt+1)
		}

		err := c.doOnce(ctx, method, path, bodyBytes, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, bodyBytes []byte, out any) error {
	var reqBody io.Reader
	if bodyBytes != nil {
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reqBody)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-App-Token", c.cfg.SharedToken)
	req.Header.Set("X-Session-Token", c.session.Token)
	req.Header.Set("X-Session-Seed", c.session.Seed())
	observability.InjectTraceHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if c.observe != nil {
			c.observe(path, 0, time.Since(start))
		}
		if isConnectionError(err) {
			return &retryableError{model.NewUpstreamUnavailableError()}
		}
		if ctx.Err() != nil {
			return model.NewUpstreamTimeoutError()
		}
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if c.observe != nil {
		c.observe(path, resp.StatusCode, time.Since(start))
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("remote: read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.sessionRejected()
		return model.NewSessionInvalidError()
	}
	if resp.StatusCode >= 500 {
		return &retryableError{model.NewUpstreamUnavailableError()}
	}
	if resp.StatusCode >= 400 {
		return upstreamError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("remote: decode response: %w", err)
		}
	}
	return nil
}

// sessionRejected routes the rejection through the global unauthorized path.
func (c *Client) sessionRejected() {
	slog.Warn("remote: upstream rejected session credential")
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// upstreamError surfaces the server-provided message when one is present.
func upstreamError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := fmt.Sprintf("upstream returned status %d", status)
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			msg = payload.Message
		} else if payload.Error != "" {
			msg = payload.Error
		}
	}
	return model.NewBadRequestError(msg)
}

// retryableError marks transient upstream failures eligible for retry.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

func isIdempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func backoffDelay(cfg config.RetryConfig, attempt int) time.Duration {
	initial := cfg.BackoffInitial
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	multiplier := cfg.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	maxDelay := cfg.BackoffMax
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay > maxDelay {
			return maxDelay
		}
	}
	return delay
}
