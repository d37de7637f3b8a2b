package polygon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/polygon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *polygon.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &contract.Config{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		RateLimit: 1000, // Effectively unthrottled for tests
	}
	return polygon.NewClient(cfg)
}

func TestGetPageDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/v2/reference/news", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("ticker"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "OK",
			"count":    2,
			"results":  []map[string]any{{"id": "a"}, {"id": "b"}},
			"next_url": "https://api.example.com/v2/reference/news?cursor=tok123",
		})
	})

	query := url.Values{"ticker": {"AAPL"}}
	items, next, err := client.GetPage(context.Background(), polygon.NewsEndpoint(), query, "")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "tok123", next)
}

func TestGetPagePassesCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		_, _ = fmt.Fprint(w, `{"status":"OK","results":[]}`)
	})

	items, next, err := client.GetPage(context.Background(), polygon.NewsEndpoint(), nil, "abc")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, next)
}

func TestGetPageSurfacesAPIErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, `{"status":"ERROR","error":"unauthorized"}`)
	})

	_, _, err := client.GetPage(context.Background(), polygon.NewsEndpoint(), nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestExtractCursor(t *testing.T) {
	assert.Equal(t, "", polygon.ExtractCursor(""))
	assert.Equal(t, "tok", polygon.ExtractCursor("https://x/v3/q?a=1&cursor=tok&b=2"))
	assert.Equal(t, "", polygon.ExtractCursor("https://x/v3/q?a=1"))
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "/v3/snapshot/options/NVDA", polygon.OptionsChainEndpoint("NVDA"))
	assert.Equal(t, "/v2/aggs/ticker/AAPL/range/1/day/2024-01-01/2024-01-31",
		polygon.AggsEndpoint("AAPL", 1, "day", "2024-01-01", "2024-01-31"))
}
