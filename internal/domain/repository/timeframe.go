package repository

import "time"

// Timeframe represents bar resolution buckets.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF30m Timeframe = "30m"
)

// Valid reports whether tf is one of the supported resolutions.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TF1m, TF5m, TF30m:
		return true
	}
	return false
}

// Duration returns the bucket width, or zero for an unknown timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF30m:
		return 30 * time.Minute
	default:
		return 0
	}
}

// DefaultTimeframe returns the analysis-grade resolution.
func DefaultTimeframe() Timeframe { return TF30m }

// NormalizeTimeframe maps a request string onto a supported timeframe,
// falling back to the default for blank or unknown values.
func NormalizeTimeframe(s string) Timeframe {
	if tf := Timeframe(s); tf.Valid() {
		return tf
	}
	return DefaultTimeframe()
}
