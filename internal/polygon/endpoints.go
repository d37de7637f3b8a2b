package polygon

import (
	"fmt"
	"net/url"
)

// Endpoint paths for the list APIs exposed as tools. Path parameters are
// escaped; range and filter parameters travel in the query string.

// OptionsChainEndpoint returns the snapshot options chain path for an
// underlying ticker.
func OptionsChainEndpoint(underlying string) string {
	return "/v3/snapshot/options/" + url.PathEscape(underlying)
}

// OptionsContractsEndpoint lists options contract reference data.
func OptionsContractsEndpoint() string {
	return "/v3/reference/options/contracts"
}

// AggsEndpoint returns the aggregate bars path for a ticker and range.
func AggsEndpoint(ticker string, multiplier int, timespan, from, to string) string {
	return fmt.Sprintf("/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		url.PathEscape(ticker), multiplier, url.PathEscape(timespan),
		url.PathEscape(from), url.PathEscape(to))
}

// NewsEndpoint lists ticker news articles.
func NewsEndpoint() string {
	return "/v2/reference/news"
}
