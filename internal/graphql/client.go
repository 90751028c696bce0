// Package graphql is a small GitHub GraphQL client. Every call carries the
// caller's bearer token explicitly; the client itself holds no credentials.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultEndpoint is the public GitHub GraphQL endpoint.
const DefaultEndpoint = "https://api.github.com/graphql"

type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger used for debug tracing of calls.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorEntry    `json:"errors"`
}

// Execute runs query with vars and decodes the "data" member into out.
// out may be nil when the caller only cares about success. There is no retry.
func (c *Client) Execute(ctx context.Context, token, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	c.logger.Debug("github graphql call",
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
		"vars", redactVars(vars),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(raw, 512)),
		}
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode graphql response: %w", err)}
	}
	if len(decoded.Errors) > 0 {
		return &RemoteAPIError{Errors: decoded.Errors}
	}
	if out == nil || len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode graphql data: %w", err)}
	}
	return nil
}

// redactVars drops free-text bodies from debug logs.
func redactVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		if k == "body" {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}

func truncate(raw []byte, limit int) string {
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
