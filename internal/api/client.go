// Package api is the REST access layer for the ForumKit backend: a thin
// fetch wrapper adding the bearer token header and JSON (de)serialization.
// Calls carry a context and surface failures as *Error values; the package
// never retries or sequences concurrent requests.
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

	"forumkit/internal/logging"
)

// Config configures the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the ForumKit backend.
type Client struct {
	baseURL string
	http    *http.Client
	token   func() string // bearer token source, "" when signed out
	expired func()        // invoked when the backend reports JWT_EXPIRED
	log     *logging.Logger
}

// New creates a client. token is consulted per request. onExpired runs when
// any call comes back with the JWT_EXPIRED error code; the caller is
// expected to clear the local session and prompt a re-login there.
func New(cfg Config, token func() string, onExpired func()) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		token:   token,
		expired: onExpired,
		log:     logging.Get(logging.CategoryAPI),
	}
}

// do performs one JSON request. body and out may be nil. Non-2xx responses
// are returned as *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)
	defer timer.StopWithThreshold(2 * time.Second)

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("%s %s failed: %v", method, path, err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, data)
		c.log.Warn("%s %s -> %d (%s)", method, path, resp.StatusCode, apiErr.Code)
		if apiErr.Code == CodeJWTExpired && c.expired != nil {
			c.expired()
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) del(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
