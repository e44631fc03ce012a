package indicators

import (
	ts "CoinScope/internal/timeseries"
)

// OBV is on-balance volume: the running sum of volume signed by the close
// delta. Rows where the delta or volume is unavailable contribute zero, so
// the series is defined from the first row.
func OBV(close, volume []float64) []float64 {
	delta := ts.Diff(close)
	signed := make([]float64, len(close))
	for i := range signed {
		d, v := delta[i], volume[i]
		if ts.IsMissing(d) || ts.IsMissing(v) || d == 0 {
			continue
		}
		if d > 0 {
			signed[i] = v
		} else {
			signed[i] = -v
		}
	}
	return ts.CumSum(signed)
}

// CMF is the Chaikin money flow over w periods: the ratio of summed money
// flow volume to summed volume. A bar with high == low has an undefined
// multiplier and contributes zero flow; a window with zero total volume
// yields missing.
func CMF(high, low, close, volume []float64, w int) []float64 {
	mfv := make([]float64, len(close))
	for i := range mfv {
		h, l, c, v := high[i], low[i], close[i], volume[i]
		if ts.IsMissing(h) || ts.IsMissing(l) || ts.IsMissing(c) || ts.IsMissing(v) {
			mfv[i] = ts.Missing
			continue
		}
		if h == l {
			mfv[i] = 0
			continue
		}
		mfm := ((c - l) - (h - c)) / (h - l)
		mfv[i] = mfm * v
	}
	return ts.Div(ts.Sum(mfv, w), ts.Sum(volume, w))
}

// VWAP is the volume-weighted average of the typical price over w periods.
// A window with zero total volume yields missing.
func VWAP(high, low, close, volume []float64, w int) []float64 {
	tp := TypicalPrice(high, low, close)
	weighted := make([]float64, len(close))
	for i := range weighted {
		weighted[i] = tp[i] * volume[i]
	}
	return ts.Div(ts.Sum(weighted, w), ts.Sum(volume, w))
}

// VWAPDeviation is the percentage distance of close from the VWAP. A zero
// or missing VWAP yields missing.
func VWAPDeviation(close, vwap []float64) []float64 {
	out := make([]float64, len(close))
	for i := range out {
		if ts.IsMissing(close[i]) || ts.IsMissing(vwap[i]) || vwap[i] == 0 {
			out[i] = ts.Missing
			continue
		}
		out[i] = (close[i] - vwap[i]) / vwap[i] * 100
	}
	return out
}
