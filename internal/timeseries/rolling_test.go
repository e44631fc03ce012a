package timeseries

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMeanStrictWarmup(t *testing.T) {
	v := []float64{1, 2, 3, 4, 5}
	got := Mean(v, 3)

	for i := 0; i < 2; i++ {
		if !IsMissing(got[i]) {
			t.Fatalf("index %d: expected missing during warmup, got %v", i, got[i])
		}
	}
	if !almostEqual(got[2], 2) || !almostEqual(got[3], 3) || !almostEqual(got[4], 4) {
		t.Fatalf("unexpected means: %v", got)
	}
}

func TestMeanConstantSeries(t *testing.T) {
	v := []float64{100, 100, 100, 100, 100}
	got := Mean(v, 5)
	if got[4] != 100 {
		t.Fatalf("mean of identical values must equal the value exactly, got %v", got[4])
	}
}

func TestMeanPoisonedWindow(t *testing.T) {
	v := []float64{1, 2, Missing, 4, 5, 6, 7}
	got := Mean(v, 3)

	// Windows touching index 2 stay missing; index 5 is the first clean one.
	for i := 2; i <= 4; i++ {
		if !IsMissing(got[i]) {
			t.Fatalf("index %d: expected missing, got %v", i, got[i])
		}
	}
	if !almostEqual(got[5], 5) {
		t.Fatalf("expected 5 at index 5, got %v", got[5])
	}
}

func TestMeanMinRelaxed(t *testing.T) {
	v := []float64{2, 4, 6}
	got := MeanMin(v, 3, 1)
	if !almostEqual(got[0], 2) || !almostEqual(got[1], 3) || !almostEqual(got[2], 4) {
		t.Fatalf("relaxed mean wrong: %v", got)
	}

	withGap := []float64{Missing, 4, 6}
	got = MeanMin(withGap, 3, 1)
	if !IsMissing(got[0]) {
		t.Fatalf("no samples yet, expected missing")
	}
	if !almostEqual(got[2], 5) {
		t.Fatalf("expected 5, got %v", got[2])
	}
}

func TestSum(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	got := Sum(v, 2)
	if !IsMissing(got[0]) {
		t.Fatalf("expected warmup missing")
	}
	if !almostEqual(got[1], 3) || !almostEqual(got[3], 7) {
		t.Fatalf("unexpected sums: %v", got)
	}
}

func TestSumMinRelaxed(t *testing.T) {
	v := []float64{Missing, 4, 6}
	got := SumMin(v, 3, 1)
	if !IsMissing(got[0]) {
		t.Fatalf("no samples yet, expected missing")
	}
	if !almostEqual(got[1], 4) || !almostEqual(got[2], 10) {
		t.Fatalf("relaxed sum wrong: %v", got)
	}
	if !IsMissing(SumMin(v, 3, 3)[2]) {
		t.Fatalf("min=3 with a gap should stay missing")
	}
}

func TestStdSample(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	got := Std(v, 4)
	want := math.Sqrt(5.0 / 3.0)
	if !almostEqual(got[3], want) {
		t.Fatalf("expected sample std %v, got %v", want, got[3])
	}
}

func TestStdZeroVariance(t *testing.T) {
	v := []float64{7, 7, 7, 7}
	got := Std(v, 3)
	if got[3] != 0 {
		t.Fatalf("std of identical values should be zero, got %v", got[3])
	}
}

func TestStdSingleSampleWindow(t *testing.T) {
	got := Std([]float64{1, 2, 3}, 1)
	for i, x := range got {
		if !IsMissing(x) {
			t.Fatalf("index %d: sample std undefined for w=1, got %v", i, x)
		}
	}
}

func TestMinMax(t *testing.T) {
	v := []float64{3, 1, 4, 1, 5}
	lo := Min(v, 3)
	hi := Max(v, 3)
	if !almostEqual(lo[2], 1) || !almostEqual(lo[4], 1) {
		t.Fatalf("unexpected mins: %v", lo)
	}
	if !almostEqual(hi[2], 4) || !almostEqual(hi[4], 5) {
		t.Fatalf("unexpected maxes: %v", hi)
	}
}

func TestMeanAbsDev(t *testing.T) {
	v := []float64{1, 2, 3}
	got := MeanAbsDev(v, 3)
	if !almostEqual(got[2], 2.0/3.0) {
		t.Fatalf("expected 2/3, got %v", got[2])
	}
}

func TestPctChangeDoubling(t *testing.T) {
	v := make([]float64, 97)
	for i := range v {
		v[i] = math.Pow(2, float64(i)/48)
	}
	got := PctChange(v, 48)
	for i := 48; i < len(v); i++ {
		if !almostEqual(got[i], 1.0) {
			t.Fatalf("index %d: expected 1.0, got %v", i, got[i])
		}
	}
}

func TestPctChangeZeroDenominator(t *testing.T) {
	v := []float64{0, 5}
	got := PctChange(v, 1)
	if !IsMissing(got[1]) {
		t.Fatalf("zero denominator must yield missing, got %v", got[1])
	}
}

func TestDiff(t *testing.T) {
	got := Diff([]float64{1, 4, 2})
	if !IsMissing(got[0]) {
		t.Fatalf("first diff must be missing")
	}
	if !almostEqual(got[1], 3) || !almostEqual(got[2], -2) {
		t.Fatalf("unexpected diffs: %v", got)
	}
}

func TestDiv(t *testing.T) {
	a := []float64{10, 10, 10}
	b := []float64{2, 0, Missing}
	got := Div(a, b)
	if !almostEqual(got[0], 5) {
		t.Fatalf("expected 5, got %v", got[0])
	}
	if !IsMissing(got[1]) || !IsMissing(got[2]) {
		t.Fatalf("zero or missing denominators must yield missing: %v", got)
	}
}

func TestZScoreZeroVariance(t *testing.T) {
	v := []float64{5, 5, 5, 5, 5}
	got := ZScore(v, 3)
	for i, x := range got {
		if !IsMissing(x) {
			t.Fatalf("index %d: zero-variance z-score must be missing, got %v", i, x)
		}
	}
}

func TestZScoreKnown(t *testing.T) {
	v := []float64{1, 2, 3}
	got := ZScore(v, 3)
	// mean 2, sample std 1, current 3
	if !almostEqual(got[2], 1) {
		t.Fatalf("expected z=1, got %v", got[2])
	}
}

func TestLinRegEndpointOnLine(t *testing.T) {
	v := make([]float64, 30)
	for i := range v {
		v[i] = 3*float64(i) + 1
	}
	got := LinRegEndpoint(v, 20)
	for i := 19; i < len(v); i++ {
		if !almostEqual(got[i], v[i]) {
			t.Fatalf("index %d: endpoint on a straight line must equal the value, got %v want %v", i, got[i], v[i])
		}
	}
}

func TestLinRegSlopeOnLine(t *testing.T) {
	v := make([]float64, 12)
	for i := range v {
		v[i] = -2*float64(i) + 5
	}
	got := LinRegSlope(v, 8)
	if !almostEqual(got[11], -2) {
		t.Fatalf("expected slope -2, got %v", got[11])
	}
}

func TestEMAKnown(t *testing.T) {
	got := EMA([]float64{1, 2, 3, 4}, 3)
	if !IsMissing(got[0]) || !IsMissing(got[1]) {
		t.Fatalf("ema must be missing until span samples seen: %v", got)
	}
	if !almostEqual(got[2], 2.25) || !almostEqual(got[3], 3.125) {
		t.Fatalf("unexpected ema values: %v", got)
	}
}

func TestEMACarriesOverMissing(t *testing.T) {
	got := EMA([]float64{1, 2, 3, Missing, 4}, 3)
	if !almostEqual(got[3], got[2]) {
		t.Fatalf("missing input should carry the previous value, got %v", got[3])
	}
	if IsMissing(got[4]) {
		t.Fatalf("ema should resume after a gap")
	}
}

func TestCumSum(t *testing.T) {
	got := CumSum([]float64{1, Missing, 2})
	if !almostEqual(got[0], 1) || !almostEqual(got[1], 1) || !almostEqual(got[2], 3) {
		t.Fatalf("unexpected running totals: %v", got)
	}
}
