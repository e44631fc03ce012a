package http

import (
	"time"

	xutil "CoinScope/pkg/util"
)

// Re-exports for handler code, so query parsing does not need a second
// import next to the response helpers.

// ParseIntDefault parses s or falls back to def.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// ParseTimeDefault accepts RFC3339 or unix seconds, falling back to def.
func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }
