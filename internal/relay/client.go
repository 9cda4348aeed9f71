// Package relay is the client for the off-chain relay/middleware service that
// receives settlement requests, sponsors batched approvals and serves indexed
// balances.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
)

const defaultTimeout = 30 * time.Second

// clientHeader carries the opaque client identifier the surrounding
// application may persist. Not core state; regenerated when absent.
const clientHeader = "X-Nexus-Client"

type Client struct {
	baseURL    string
	httpClient *http.Client
	clientID   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithClientID reuses a previously persisted client identifier.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clientID == "" {
		c.clientID = uuid.New().String()
	}
	return c
}

// ClientID returns the identifier sent with every call, for the application
// to persist.
func (c *Client) ClientID() string { return c.clientID }

func call[T any](ctx context.Context, c *Client, method, path string, body any, params map[string]string) (T, error) {
	var out T

	endpoint := c.baseURL + path
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		endpoint += "?" + q.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return out, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return out, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(clientHeader, c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, cerrs.Wrap(cerrs.CodeRelay, "call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, cerrs.Wrap(cerrs.CodeRelay, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, cerrs.Newf(cerrs.CodeRelay, "%s %s: status %d: %s",
			method, path, resp.StatusCode, string(raw))
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, cerrs.Wrap(cerrs.CodeRelay, "failed to decode response", err)
		}
	}
	return out, nil
}
