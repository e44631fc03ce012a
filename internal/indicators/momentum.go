// Package indicators implements the column-level technical indicators the
// market and on-chain pipelines compose from the timeseries primitives.
// Every function is pure: inputs are read-only, outputs are fresh slices,
// and structural singularities (zero band width, zero deviation, zero
// volume) yield a missing value for that row instead of an infinity.
package indicators

import (
	ts "CoinScope/internal/timeseries"
)

// RSI is the relative strength index over w periods using simple rolling
// means of gains and losses, scaled to 0..100. An all-gain window saturates
// at 100; a flat window has no ratio and stays missing.
func RSI(close []float64, w int) []float64 {
	delta := ts.Diff(close)
	gains := make([]float64, len(close))
	losses := make([]float64, len(close))
	for i, d := range delta {
		if ts.IsMissing(d) {
			gains[i] = ts.Missing
			losses[i] = ts.Missing
			continue
		}
		if d > 0 {
			gains[i] = d
		}
		if d < 0 {
			losses[i] = -d
		}
	}
	avgGain := ts.Mean(gains, w)
	avgLoss := ts.Mean(losses, w)

	out := make([]float64, len(close))
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case ts.IsMissing(g) || ts.IsMissing(l):
			out[i] = ts.Missing
		case l == 0 && g == 0:
			out[i] = ts.Missing
		case l == 0:
			out[i] = 100
		default:
			rs := g / l
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// MACD returns the moving average convergence/divergence line
// (EMA(fast) - EMA(slow)), the EMA(signalSpan) of that line, and the
// histogram (line - signal).
func MACD(close []float64, fast, slow, signalSpan int) (line, signal, hist []float64) {
	fastEMA := ts.EMA(close, fast)
	slowEMA := ts.EMA(close, slow)
	line = ts.Sub(fastEMA, slowEMA)
	signal = ts.EMA(line, signalSpan)
	hist = ts.Sub(line, signal)
	return line, signal, hist
}

// TypicalPrice is (high + low + close) / 3 per row.
func TypicalPrice(high, low, close []float64) []float64 {
	out := make([]float64, len(close))
	for i := range out {
		out[i] = (high[i] + low[i] + close[i]) / 3
	}
	return out
}

// CCI is the commodity channel index over w periods:
// (tp - Mean(tp,w)) / (0.015 * MeanAbsDev(tp,w)). A zero deviation
// (flat window) yields missing.
func CCI(high, low, close []float64, w int) []float64 {
	tp := TypicalPrice(high, low, close)
	mean := ts.Mean(tp, w)
	dev := ts.MeanAbsDev(tp, w)

	out := make([]float64, len(close))
	for i := range out {
		if ts.IsMissing(mean[i]) || ts.IsMissing(dev[i]) || dev[i] == 0 {
			out[i] = ts.Missing
			continue
		}
		out[i] = (tp[i] - mean[i]) / (0.015 * dev[i])
	}
	return out
}
