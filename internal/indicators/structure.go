package indicators

import (
	"math"

	ts "CoinScope/internal/timeseries"
)

// Choppiness is the choppiness index over w periods:
// 100 * log10(Sum(high-low, w) / (Max(high, w) - Min(low, w))) / log10(w).
// A zero trading range or a non-positive ratio yields missing. Values near
// 100 mark a sideways market, values near 0 a strong directional move.
func Choppiness(high, low []float64, w int) []float64 {
	out := ts.MissingSlice(len(high))
	if w < 2 {
		return out
	}
	span := make([]float64, len(high))
	for i := range span {
		span[i] = high[i] - low[i]
	}
	sums := ts.Sum(span, w)
	highs := ts.Max(high, w)
	lows := ts.Min(low, w)
	denom := math.Log10(float64(w))

	for i := range out {
		if ts.IsMissing(sums[i]) || ts.IsMissing(highs[i]) || ts.IsMissing(lows[i]) {
			continue
		}
		rng := highs[i] - lows[i]
		if rng == 0 {
			continue
		}
		ratio := sums[i] / rng
		if ratio <= 0 {
			continue
		}
		out[i] = 100 * math.Log10(ratio) / denom
	}
	return out
}

// RegressionChannel fits a rolling w-period least-squares line to price and
// returns its endpoint as the channel midline together with the bands k
// sample standard deviations around it.
func RegressionChannel(price []float64, w int, k float64) (mid, upper, lower []float64) {
	mid = ts.LinRegEndpoint(price, w)
	sd := ts.Std(price, w)
	upper, lower = Bands(mid, sd, k)
	return mid, upper, lower
}

// OutlierSignal flags price excursions beyond the channel: +1 above upper,
// -1 below lower, 0 inside. Comparisons against a missing bound are false,
// so the signal is defined for every row.
func OutlierSignal(price, upper, lower []float64) []float64 {
	out := make([]float64, len(price))
	for i := range out {
		switch {
		case price[i] > upper[i]:
			out[i] = 1
		case price[i] < lower[i]:
			out[i] = -1
		}
	}
	return out
}
