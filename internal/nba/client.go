// Package nba provides the HTTP client for the public stats endpoints.
//
// The endpoints return result sets as header/row arrays and expect
// browser-like request headers. Rate limiting is a hard requirement of the
// service's acceptable-use policy, enforced here with a token bucket; the
// calendar-day budget lives with the caller's governor.
package nba

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// identities are the browser header sets the client cycles through. The
// final retry attempt rotates to the next one before the request goes out.
var identities = []map[string]string{
	{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "application/json",
		"Referer":         "https://www.nba.com/",
		"Accept-Language": "en-US,en;q=0.9",
	},
	{
		"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Accept":          "application/json",
		"Referer":         "https://www.nba.com/stats/",
		"Accept-Language": "en-US,en;q=0.8",
	},
	{
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Accept":          "application/json",
		"Referer":         "https://www.nba.com/",
		"Accept-Language": "en-US,en;q=0.7",
	},
}

// Client is the HTTP client for all stats endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
	policy     Policy
	identity   int
}

// NewClient creates a stats client with rate limiting and bounded retries.
func NewClient(baseURL string, requestsPerMinute int, timeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	rps := float64(requestsPerMinute) / 60.0

	policy := DefaultPolicy()
	if maxRetries > 0 {
		policy.MaxAttempts = maxRetries
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
		policy:     policy,
	}
	c.policy.OnFinalAttempt = c.rotateIdentity
	return c
}

// rotateIdentity switches to the next browser header set. Used as the
// last-attempt auto-resume measure when a player keeps failing.
func (c *Client) rotateIdentity() {
	c.identity = (c.identity + 1) % len(identities)
	c.logger.Info("rotated request identity", "identity", c.identity)
}

// resultSetResponse is the common response wrapper: parallel header and row
// arrays per named result set.
type resultSetResponse struct {
	ResultSets []struct {
		Name    string          `json:"name"`
		Headers []string        `json:"headers"`
		RowSet  [][]interface{} `json:"rowSet"`
	} `json:"resultSets"`
}

// resultSet pairs headers with rows and resolves columns by name.
type resultSet struct {
	index map[string]int
	rows  [][]interface{}
}

func (s *resultSet) cell(row []interface{}, column string) interface{} {
	i, ok := s.index[column]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

// get performs one rate-limited GET and decodes the result sets. Transport
// and status failures come back as classified FetchErrors; retries are the
// caller's concern (see getRetry).
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*resultSetResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range identities[c.identity] {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(endpoint, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(endpoint, 0, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classify(endpoint, resp.StatusCode,
			fmt.Errorf("returned %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	var result resultSetResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, classify(endpoint, 0, fmt.Errorf("decode response: %w", err))
	}
	return &result, nil
}

// getRetry wraps get with the client's retry policy.
func (c *Client) getRetry(ctx context.Context, endpoint string, params url.Values) (*resultSetResponse, error) {
	var result *resultSetResponse
	err := Do(ctx, c.policy, func(ctx context.Context) error {
		var err error
		result, err = c.get(ctx, endpoint, params)
		return err
	})
	return result, err
}

// findSet locates a result set by name; the first set is the fallback since
// several endpoints ship exactly one unnamed set.
func findSet(resp *resultSetResponse, name string) (*resultSet, error) {
	if len(resp.ResultSets) == 0 {
		return nil, fmt.Errorf("response has no result sets")
	}
	chosen := resp.ResultSets[0]
	for _, rs := range resp.ResultSets {
		if rs.Name == name {
			chosen = rs
			break
		}
	}

	index := make(map[string]int, len(chosen.Headers))
	for i, h := range chosen.Headers {
		index[h] = i
	}
	return &resultSet{index: index, rows: chosen.RowSet}, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
