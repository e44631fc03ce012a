package util

import "strconv"

// ParseIntDefault converts s, falling back to def on empty or junk input.
func ParseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
