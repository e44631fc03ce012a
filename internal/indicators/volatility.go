package indicators

import (
	"math"
	"time"

	ts "CoinScope/internal/timeseries"
)

// TrueRange is max(high-low, |high-prevClose|, |prevClose-low|) per row.
// The first row has no previous close and is missing.
func TrueRange(high, low, close []float64) []float64 {
	out := ts.MissingSlice(len(close))
	for i := 1; i < len(close); i++ {
		prev := close[i-1]
		if ts.IsMissing(high[i]) || ts.IsMissing(low[i]) || ts.IsMissing(prev) {
			continue
		}
		tr := high[i] - low[i]
		if d := math.Abs(high[i] - prev); d > tr {
			tr = d
		}
		if d := math.Abs(prev - low[i]); d > tr {
			tr = d
		}
		out[i] = tr
	}
	return out
}

// ATR is the simple rolling mean of the true range over w periods.
func ATR(high, low, close []float64, w int) []float64 {
	return ts.Mean(TrueRange(high, low, close), w)
}

// Bands offsets mid by k standard deviations each way.
func Bands(mid, sd []float64, k float64) (upper, lower []float64) {
	upper = make([]float64, len(mid))
	lower = make([]float64, len(mid))
	for i := range mid {
		upper[i] = mid[i] + k*sd[i]
		lower[i] = mid[i] - k*sd[i]
	}
	return upper, lower
}

// Bollinger returns the w-period rolling mean and the bands k sample
// standard deviations around it.
func Bollinger(close []float64, w int, k float64) (mid, upper, lower []float64) {
	mid = ts.Mean(close, w)
	sd := ts.Std(close, w)
	upper, lower = Bands(mid, sd, k)
	return mid, upper, lower
}

// PercentB locates close within the band: (close - lower) / (upper - lower).
// A degenerate band (zero width, as on a flat window) yields missing.
func PercentB(close, upper, lower []float64) []float64 {
	out := make([]float64, len(close))
	for i := range out {
		width := upper[i] - lower[i]
		if ts.IsMissing(width) || width == 0 {
			out[i] = ts.Missing
			continue
		}
		out[i] = (close[i] - lower[i]) / width
	}
	return out
}

// RealizedVol is the annualized sample standard deviation of w-period log
// returns. Non-positive prices contribute a zero return rather than a NaN
// from the logarithm.
func RealizedVol(close []float64, w int, barsPerYear float64) []float64 {
	rets := ts.MissingSlice(len(close))
	for i := 1; i < len(close); i++ {
		prev, cur := close[i-1], close[i]
		if ts.IsMissing(prev) || ts.IsMissing(cur) {
			continue
		}
		if prev <= 0 || cur <= 0 {
			rets[i] = 0
			continue
		}
		rets[i] = math.Log(cur / prev)
	}
	sd := ts.Std(rets, w)

	ann := math.Sqrt(barsPerYear)
	out := make([]float64, len(close))
	for i := range out {
		if ts.IsMissing(sd[i]) {
			out[i] = ts.Missing
			continue
		}
		out[i] = sd[i] * ann
	}
	return out
}

// BarsPerYear converts a bar interval into the annualization factor used by
// RealizedVol. A non-positive interval yields zero.
func BarsPerYear(step time.Duration) float64 {
	if step <= 0 {
		return 0
	}
	return 365 * 24 * time.Hour.Seconds() / step.Seconds()
}
