package timeseries

import "math"

// Rolling transforms operate over the trailing w values ending at each row.
// Under the strict policy (every production call site) the output is missing
// until a full window of non-missing values is available; a single missing
// value poisons every window that contains it. The ...Min variants relax the
// requirement to a minimum number of available samples and exist for
// short-history tolerance; no shipped pipeline opts into them.

// MissingSlice returns a slice of n missing values, the starting point for
// any derived column.
func MissingSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = Missing
	}
	return out
}

func windowSum(v []float64, end, w int) (float64, bool) {
	sum := 0.0
	for j := end - w + 1; j <= end; j++ {
		if IsMissing(v[j]) {
			return 0, false
		}
		sum += v[j]
	}
	return sum, true
}

// Mean is the arithmetic mean of the trailing w values.
func Mean(v []float64, w int) []float64 {
	out := MissingSlice(len(v))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		if sum, ok := windowSum(v, i, w); ok {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// MeanMin is Mean under the relaxed policy: the mean over the non-missing
// values in the window, defined once at least min samples are present.
func MeanMin(v []float64, w, min int) []float64 {
	out := MissingSlice(len(v))
	if w <= 0 {
		return out
	}
	if min < 1 {
		min = 1
	}
	for i := 0; i < len(v); i++ {
		start := i - w + 1
		if start < 0 {
			start = 0
		}
		sum, n := 0.0, 0
		for j := start; j <= i; j++ {
			if !IsMissing(v[j]) {
				sum += v[j]
				n++
			}
		}
		if n >= min {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// Sum is the sum of the trailing w values.
func Sum(v []float64, w int) []float64 {
	out := MissingSlice(len(v))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		if sum, ok := windowSum(v, i, w); ok {
			out[i] = sum
		}
	}
	return out
}

// SumMin is Sum under the relaxed policy.
func SumMin(v []float64, w, min int) []float64 {
	out := MissingSlice(len(v))
	if w <= 0 {
		return out
	}
	if min < 1 {
		min = 1
	}
	for i := 0; i < len(v); i++ {
		start := i - w + 1
		if start < 0 {
			start = 0
		}
		sum, n := 0.0, 0
		for j := start; j <= i; j++ {
			if !IsMissing(v[j]) {
				sum += v[j]
				n++
			}
		}
		if n >= min {
			out[i] = sum
		}
	}
	return out
}

// Std is the sample standard deviation (n-1 divisor) of the trailing w
// values. A window of one sample has no sample deviation and stays missing.
func Std(v []float64, w int) []float64 {
	out := MissingSlice(len(v))
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		sum, ok := windowSum(v, i, w)
		if !ok {
			continue
		}
		mean := sum / float64(w)
		ss := 0.0
		for j := i - w + 1; j <= i; j++ {
			d := v[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

// Min is the minimum of the trailing w values.
func Min(v []float64, w int) []float64 {
	out := MissingSlice(len(v))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		lo, ok := v[i], !IsMissing(v[i])
		for j := i - w + 1; j < i && ok; j++ {
			if IsMissing(v[j]) {
				ok = false
				break
			}
			if v[j] < lo {
				lo = v[j]
			}
		}
		if ok {
			out[i] = lo
		}
	}
	return out
}

// Max is the maximum of the trailing w values.
func Max(v []float64, w int) []float64 {
	out := MissingSlice(len(v))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		hi, ok := v[i], !IsMissing(v[i])
		for j := i - w + 1; j < i && ok; j++ {
			if IsMissing(v[j]) {
				ok = false
				break
			}
			if v[j] > hi {
				hi = v[j]
			}
		}
		if ok {
			out[i] = hi
		}
	}
	return out
}

// MeanAbsDev is the mean absolute deviation of the trailing w values from
// their window mean.
func MeanAbsDev(v []float64, w int) []float64 {
	out := MissingSlice(len(v))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		sum, ok := windowSum(v, i, w)
		if !ok {
			continue
		}
		mean := sum / float64(w)
		dev := 0.0
		for j := i - w + 1; j <= i; j++ {
			dev += math.Abs(v[j] - mean)
		}
		out[i] = dev / float64(w)
	}
	return out
}

// PctChange is (v[i] - v[i-lag]) / v[i-lag]. The value is missing when the
// lagged value is missing or zero.
func PctChange(v []float64, lag int) []float64 {
	out := MissingSlice(len(v))
	if lag <= 0 {
		return out
	}
	for i := lag; i < len(v); i++ {
		prev := v[i-lag]
		if IsMissing(prev) || prev == 0 || IsMissing(v[i]) {
			continue
		}
		out[i] = (v[i] - prev) / prev
	}
	return out
}

// Diff is the first difference; the first row is missing.
func Diff(v []float64) []float64 {
	out := MissingSlice(len(v))
	for i := 1; i < len(v); i++ {
		out[i] = v[i] - v[i-1]
	}
	return out
}

// Sub subtracts b from a elementwise. Lengths must match.
func Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// Div divides a by b elementwise; a zero or missing denominator yields a
// missing value. Lengths must match.
func Div(a, b []float64) []float64 {
	out := MissingSlice(len(a))
	for i := range a {
		if IsMissing(b[i]) || b[i] == 0 || IsMissing(a[i]) {
			continue
		}
		out[i] = a[i] / b[i]
	}
	return out
}

// ZScore is (v[i] - Mean(v,w)[i]) / Std(v,w)[i], missing when the deviation
// is zero or either statistic is missing.
func ZScore(v []float64, w int) []float64 {
	mean := Mean(v, w)
	sd := Std(v, w)
	out := MissingSlice(len(v))
	for i := range v {
		if IsMissing(mean[i]) || IsMissing(sd[i]) || sd[i] == 0 || IsMissing(v[i]) {
			continue
		}
		out[i] = (v[i] - mean[i]) / sd[i]
	}
	return out
}

func linregWindow(v []float64, end, w int) (m, c float64, ok bool) {
	n := float64(w)
	sumX := n * (n - 1) / 2
	sumXX := (n - 1) * n * (2*n - 1) / 6
	sumY, sumXY := 0.0, 0.0
	for j := 0; j < w; j++ {
		y := v[end-w+1+j]
		if IsMissing(y) {
			return 0, 0, false
		}
		sumY += y
		sumXY += float64(j) * y
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}
	m = (n*sumXY - sumX*sumY) / denom
	c = (sumY - m*sumX) / n
	return m, c, true
}

// LinRegEndpoint fits y = m*x + c by ordinary least squares over the trailing
// w values indexed 0..w-1 and returns the fitted value at x = w-1.
func LinRegEndpoint(v []float64, w int) []float64 {
	out := MissingSlice(len(v))
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		if m, c, ok := linregWindow(v, i, w); ok {
			out[i] = m*float64(w-1) + c
		}
	}
	return out
}

// LinRegSlope returns the ordinary-least-squares slope over the trailing w
// values.
func LinRegSlope(v []float64, w int) []float64 {
	out := MissingSlice(len(v))
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		if m, _, ok := linregWindow(v, i, w); ok {
			out[i] = m
		}
	}
	return out
}

// EMA is the recursive exponential mean with alpha = 2/(span+1), seeded at
// the first non-missing value. Output stays missing until span non-missing
// samples have been consumed; missing inputs after the seed emit the carried
// value without updating it.
func EMA(v []float64, span int) []float64 {
	out := MissingSlice(len(v))
	if span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	ema := 0.0
	seen := 0
	for i, x := range v {
		if IsMissing(x) {
			if seen >= span {
				out[i] = ema
			}
			continue
		}
		if seen == 0 {
			ema = x
		} else {
			ema = alpha*x + (1-alpha)*ema
		}
		seen++
		if seen >= span {
			out[i] = ema
		}
	}
	return out
}

// CumSum is the running total of v; missing values contribute zero, so the
// output is defined at every row.
func CumSum(v []float64) []float64 {
	out := make([]float64, len(v))
	total := 0.0
	for i, x := range v {
		if !IsMissing(x) {
			total += x
		}
		out[i] = total
	}
	return out
}
