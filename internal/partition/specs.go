package partition

import "strings"

// specs declares the partition scheme for every tool with a known layout.
// Tools absent from this registry fall back to a hashed key.
var specs = map[string]*Spec{
	"list_snapshot_options_chain": {
		Tool:           "list_snapshot_options_chain",
		Identity:       []string{"underlying_asset"},
		Discriminators: []string{"contract_type", "expiration_date"},
	},
	"list_options_contracts": {
		Tool:           "list_options_contracts",
		Identity:       []string{"underlying_ticker"},
		Discriminators: []string{"contract_type", "expiration_date"},
	},
	"list_aggs": {
		Tool:    "list_aggs",
		KeyFunc: aggsKey,
	},
	"get_aggs": {
		Tool:    "get_aggs",
		KeyFunc: aggsKey,
	},
	"list_ticker_news": {
		Tool:            "list_ticker_news",
		Identity:        []string{"ticker"},
		SubPartitionBy:  "published_utc",
		SubPartitionKey: monthOf,
	},
	"list_tickers": {
		Tool:           "list_tickers",
		Identity:       []string{"market"},
		Discriminators: []string{"active"},
	},
	"list_dividends": {
		Tool:     "list_dividends",
		Identity: []string{"ticker"},
	},
	"list_splits": {
		Tool:     "list_splits",
		Identity: []string{"ticker"},
	},
	"list_treasury_yields": {
		Tool:    "list_treasury_yields",
		KeyFunc: yearKey,
	},
}

// SpecFor returns the partition spec for a tool. Unknown tools get a
// generic spec whose key is a digest of the parameters.
func SpecFor(tool string) *Spec {
	if s, ok := specs[tool]; ok {
		return s
	}
	return &Spec{Tool: tool, KeyFunc: HashKey}
}

// KeyFor is a convenience for SpecFor(tool).Key(params).
func KeyFor(tool string, params map[string]any) string {
	return SpecFor(tool).Key(params)
}

// aggsKey partitions time-series aggregates as ticker/year/month, derived
// from the range start date.
func aggsKey(params map[string]any) string {
	ticker := Stringify(params["ticker"])
	if ticker == "" {
		ticker = UnknownToken
	}
	from := Stringify(params["from_"])
	if from == "" {
		from = Stringify(params["from"])
	}
	if len(from) >= 7 && from[4] == '-' {
		return Sanitize(ticker) + "/" + from[:4] + "/" + from[5:7]
	}
	return Sanitize(ticker) + "/unknown"
}

// yearKey partitions economics series by the year of the range start.
func yearKey(params map[string]any) string {
	date := Stringify(params["date_gte"])
	if date == "" {
		date = Stringify(params["date"])
	}
	if len(date) >= 4 {
		return date[:4]
	}
	return AbsentToken
}

// monthOf maps a timestamp like "2025-01-17T13:00:00Z" to "2025-01".
func monthOf(value string) string {
	if len(value) >= 7 && strings.Count(value[:7], "-") == 1 {
		return value[:7]
	}
	return UnknownToken
}
