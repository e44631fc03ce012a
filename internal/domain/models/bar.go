package models

import "time"

// Bar represents an OHLCV bucket at a fixed granularity.
// Note: no transport (json/http) concerns here.
type Bar struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Stats24h is the 24h rollup published alongside fetched bars. Field
// names match the on-disk resource contract.
type Stats24h struct {
	Open24h      float64 `json:"open_24h"`
	CloseLatest  float64 `json:"close_latest"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	Volume24h    float64 `json:"volume_24h"`
	Change24hAbs float64 `json:"change_24h_abs"`
	Change24hPct float64 `json:"change_24h_percent"`
}

// ResourceBar is one OHLCV row inside a MarketResource, timestamped in
// epoch milliseconds.
type ResourceBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// MarketResource is the on-disk market resource for one symbol: recent
// bars plus the 24h stats, or an error marker when the fetch failed.
type MarketResource struct {
	Pair      string        `json:"pair"`
	Exchange  string        `json:"exchange"`
	Timeframe string        `json:"timeframe"`
	Bars      []ResourceBar `json:"bars"`
	Stats     *Stats24h     `json:"stats,omitempty"`
	Source    string        `json:"source"`
	Error     string        `json:"error,omitempty"`
}
