package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientConfig configures a backend client.
type ClientConfig struct {
	// BaseURL is the backend origin, e.g. https://rizz.example.com.
	// Requests go to BaseURL + "/api".
	BaseURL string

	// Tokens supplies the bearer token for requests without an override.
	Tokens TokenSource

	Timeout    time.Duration
	Resilience *ResilientConfig

	// Transport replaces the pooled base transport (tests).
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Client talks to the coaching backend. All requests pass through the
// AuthTransport, so a 401 anywhere reaches the installed handler.
type Client struct {
	baseURL   string
	http      *http.Client
	auth      *AuthTransport
	resilient *ResilientTransport
	logger    *slog.Logger
}

// NewClient builds the transport chain auth -> resilience -> base.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", cfg.BaseURL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var rt http.RoundTripper = cfg.Transport
	if rt == nil {
		rt = newBaseTransport()
	}

	c := &Client{baseURL: base + "/api", logger: logger}

	if cfg.Resilience != nil {
		rc := *cfg.Resilience
		if rc.Logger == nil {
			rc.Logger = logger
		}
		c.resilient = NewResilientTransport(rt, rc)
		rt = c.resilient
	}

	c.auth = &AuthTransport{Base: rt, Tokens: cfg.Tokens}
	c.http = newHTTPClient(c.auth, cfg.Timeout)
	return c, nil
}

// OnUnauthorized installs the handler called when a token-bearing request
// gets 401.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.auth.OnUnauthorized(h)
}

// BaseURL returns the API root (backend + "/api").
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases transport resources.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	if c.resilient != nil {
		return c.resilient.Close()
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", "method", method, "path", path, "error", err)
		if errors.Is(err, ErrTransport) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return decodeError(resp.StatusCode, data)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
