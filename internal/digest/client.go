// Package digest fetches a text summary of a user's GitHub activity from the
// remote digest ("nippou") service.
package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var ErrInvalidParameters = errors.New("invalid or missing digest parameters")

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// UpstreamError reports a non-success answer from the digest service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("digest service responded %d: %s", e.StatusCode, e.Body)
}

type Request struct {
	Token          string
	SettingsGistID string
	// SinceDate and UntilDate are inclusive YYYY-MM-DD days.
	SinceDate string
	UntilDate string
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("token is required: %w", ErrInvalidParameters)
	}
	if !datePattern.MatchString(r.SinceDate) {
		return fmt.Errorf("sinceDate %q is not YYYY-MM-DD: %w", r.SinceDate, ErrInvalidParameters)
	}
	if !datePattern.MatchString(r.UntilDate) {
		return fmt.Errorf("untilDate %q is not YYYY-MM-DD: %w", r.UntilDate, ErrInvalidParameters)
	}
	return nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

// Fetch returns the digest text for the requested range. Parameters are
// validated before any network call.
func (c *Client) Fetch(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse digest url: %w", err)
	}
	query := endpoint.Query()
	query.Set("token", req.Token)
	query.Set("settings_gist_id", req.SettingsGistID)
	query.Set("since_date", compactDate(req.SinceDate))
	query.Set("until_date", compactDate(req.UntilDate))
	endpoint.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build digest request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call digest service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read digest response: %w", err)
	}
	c.logger.Debug("digest fetched",
		"since", req.SinceDate,
		"until", req.UntilDate,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var payload struct {
		Result *string `json:"result"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode digest response: %w", err)
	}
	if payload.Result == nil {
		return "", fmt.Errorf("decode digest response: missing result field")
	}
	return *payload.Result, nil
}

// compactDate turns YYYY-MM-DD into YYYYMMDD.
func compactDate(day string) string {
	return strings.ReplaceAll(day, "-", "")
}
