// Package polygon is a minimal client for the Polygon.io REST API, covering
// only what the fetch cache needs: authenticated GETs against list endpoints
// and decoding of the cursor-paginated response envelope.
package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"golang.org/x/time/rate"
)

// Envelope is the common shape of paginated list responses: a results array
// plus an optional next_url carrying an opaque cursor token.
type Envelope struct {
	Results   []map[string]any `json:"results"`
	NextURL   string           `json:"next_url"`
	Status    string           `json:"status"`
	Count     int              `json:"count"`
	RequestID string           `json:"request_id"`
}

// Client talks to the remote API with client-side pacing. All page fetches
// across a process share one limiter so that concurrent tool calls do not
// overrun the API's rate limits.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a Client from validated configuration.
func NewClient(cfg *contract.Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

// GetPage fetches one page of a list endpoint. An empty cursor requests the
// first page. It returns the decoded items and the cursor for the next page,
// or an empty cursor when pagination is exhausted.
func (c *Client) GetPage(ctx context.Context, endpoint string, query url.Values, cursor string) ([]map[string]any, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("page fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("API returned %d for %s: %s", resp.StatusCode, endpoint, truncate(string(body), 200))
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", fmt.Errorf("failed to decode response envelope: %w", err)
	}

	return env.Results, ExtractCursor(env.NextURL), nil
}

// PageFunc builds a contract.PageFunc closure over one endpoint and its
// query parameters, suitable for handing to the fetcher.
func (c *Client) PageFunc(endpoint string, query url.Values) contract.PageFunc {
	return func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
		return c.GetPage(ctx, endpoint, query, cursor)
	}
}

// ExtractCursor pulls the opaque cursor token out of a next_url value.
// Returns "" when there is no next page.
func ExtractCursor(nextURL string) string {
	if nextURL == "" {
		return ""
	}
	u, err := url.Parse(nextURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
