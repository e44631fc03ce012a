// Package analysis builds the per-domain indicator tables (market, on-chain,
// developer, sentiment) that feed the advisory engine. Builders are pure
// transforms over a loaded table; the Service wrapper adds the I/O edges
// (resource files, bar store) and observability.
package analysis

import "time"

// Windows carries every rolling-window period used by the builders. Period
// counts are expressed in bars; the horizons in the comments assume the
// default 30-minute granularity.
type Windows struct {
	Granularity time.Duration

	SOPRSmooth      int // 3.5h: SOPR_MA_7
	SentimentSmooth int // 4h: Sentiment_MA_8, FR_Slope_8
	Oscillator      int // 7h: RSI_14, ATR_14, CCI_14, CHOP_14
	Band            int // 10h: Bollinger, CMF_20, regression channel
	Session         int // 12h: VWAP_24
	MACDFast        int
	MACDSlow        int // 13h
	MACDSignal      int
	Volatility      int // 18h: Realized_Vol_36
	Daily           int // 24h: accumulations and z-scores
	CommitAccum     int // 3d: Total_Commits_Acc_144
	DevBaseline     int // 7d: Core_Dev_MA_7D
	OIChangeLag     int

	BandK    float64
	OutlierK float64
}

// DefaultWindows returns the canonical configuration. Column names keep
// their period suffixes regardless of overrides; the windows change the
// math, not the output contract.
func DefaultWindows() Windows {
	return Windows{
		Granularity:     30 * time.Minute,
		SOPRSmooth:      7,
		SentimentSmooth: 8,
		Oscillator:      14,
		Band:            20,
		Session:         24,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		Volatility:      36,
		Daily:           48,
		CommitAccum:     144,
		DevBaseline:     336,
		OIChangeLag:     4,
		BandK:           2.0,
		OutlierK:        2.0,
	}
}
