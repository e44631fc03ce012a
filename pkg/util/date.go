package util

import (
	"strconv"
	"time"
)

// ParseTime accepts RFC3339 timestamps (sub-second precision optional) or
// unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault is ParseTime with a fallback for empty or junk input.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// Bucket truncates ts to the start of its bar for the given step.
func Bucket(ts time.Time, step time.Duration) time.Time {
	if step <= 0 {
		return ts
	}
	return ts.UTC().Truncate(step)
}

// AlignFromTo rounds the time range to bar boundaries for the timeframe.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	d := time.Minute
	switch tf {
	case "1m":
		d = time.Minute
	case "5m":
		d = 5 * time.Minute
	case "30m":
		d = 30 * time.Minute
	}
	return from.Truncate(d), to.Truncate(d)
}
