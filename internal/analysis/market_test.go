package analysis

import (
	"encoding/json"
	"math"
	"testing"

	ts "CoinScope/internal/timeseries"
)

const barMillis = int64(1800000)

// testBaseMillis is 2024-11-22T12:00:00Z.
const testBaseMillis = int64(1732276800000)

func marketDoc(t *testing.T, n int, bar func(i int) map[string]any) []byte {
	t.Helper()
	bars := make([]any, n)
	for i := 0; i < n; i++ {
		b := bar(i)
		b["timestamp"] = testBaseMillis + int64(i)*barMillis
		bars[i] = b
	}
	data, err := json.Marshal(map[string]any{"bars": bars})
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}
	return data
}

func trendingBar(i int) map[string]any {
	price := 100 + float64(i)
	return map[string]any{
		"open":   price - 0.5,
		"high":   price + 1,
		"low":    price - 1,
		"close":  price,
		"volume": 10 + float64(i%5),
	}
}

func flatBar(i int) map[string]any {
	return map[string]any{
		"open":   100.0,
		"high":   100.0,
		"low":    100.0,
		"close":  100.0,
		"volume": 10.0,
	}
}

func mustBuildMarket(t *testing.T, doc []byte, w Windows, mode MarketMode) *ts.Table {
	t.Helper()
	out, err := BuildMarket(LoadMarket(doc), w, mode)
	if err != nil {
		t.Fatalf("BuildMarket: %v", err)
	}
	return out
}

func TestBuildMarketBelowBasicThreshold(t *testing.T) {
	doc := marketDoc(t, 13, trendingBar)
	w := DefaultWindows()

	concise := mustBuildMarket(t, doc, w, MarketConcise)
	if got := concise.Columns(); len(got) != 1 || got[0] != "Close_Price" {
		t.Fatalf("below 14 rows the concise table keeps only Close_Price, got %v", got)
	}

	full := mustBuildMarket(t, doc, w, MarketFull)
	if !full.Has("close") || !full.Has("Close_Price") {
		t.Fatalf("full mode keeps inputs and Close_Price, got %v", full.Columns())
	}
	if full.Has("RSI_14") || full.Has("MACD_Hist") {
		t.Fatalf("basic layer must be absent below 14 rows, got %v", full.Columns())
	}
}

func TestBuildMarketBasicWithoutAdvanced(t *testing.T) {
	doc := marketDoc(t, 20, trendingBar)
	out := mustBuildMarket(t, doc, DefaultWindows(), MarketFull)

	for _, col := range []string{"RSI_14", "MACD_Hist", "CCI_14", "ATR_14", "BB_Pct_B", "OBV_calc"} {
		if !out.Has(col) {
			t.Fatalf("basic column %s missing at 20 rows, got %v", col, out.Columns())
		}
	}
	for _, col := range []string{"VWAP_Dev_Pct", "CMF_20", "CHOP_14", "Reg_Outlier_Signal", "Realized_Vol_36"} {
		if out.Has(col) {
			t.Fatalf("advanced column %s must be absent below 24 rows", col)
		}
	}
}

func TestBuildMarketFullDepth(t *testing.T) {
	doc := marketDoc(t, 48, trendingBar)
	out := mustBuildMarket(t, doc, DefaultWindows(), MarketConcise)

	for _, col := range conciseMarketColumns {
		if !out.Has(col) {
			t.Fatalf("concise column %s missing at 48 rows, got %v", col, out.Columns())
		}
	}
	if got := out.Columns(); len(got) != len(conciseMarketColumns) {
		t.Fatalf("concise mode must project exactly the concise set, got %v", got)
	}

	dev, _ := out.Column("VWAP_Dev_Pct")
	if ts.IsMissing(dev[47]) {
		t.Fatalf("VWAP deviation should be computable at the last row")
	}
	sig, _ := out.Column("Reg_Outlier_Signal")
	for i, v := range sig {
		if ts.IsMissing(v) {
			t.Fatalf("outlier signal must never be missing, row %d", i)
		}
	}
}

func TestBuildMarketConstantCloseSingularities(t *testing.T) {
	doc := marketDoc(t, 30, flatBar)
	out := mustBuildMarket(t, doc, DefaultWindows(), MarketFull)

	for _, col := range []string{"RSI_14", "BB_Pct_B", "CCI_14", "CHOP_14"} {
		vals, ok := out.Column(col)
		if !ok {
			t.Fatalf("%s should exist on a 30-row table", col)
		}
		for i, v := range vals {
			if !ts.IsMissing(v) {
				t.Fatalf("%s[%d] = %v, want missing on a flat series", col, i, v)
			}
		}
	}

	atr, _ := out.Column("ATR_14")
	if atr[29] != 0 {
		t.Fatalf("flat series has zero true range, got ATR %v", atr[29])
	}
	vol, _ := out.Column("Realized_Vol_36")
	if !ts.IsMissing(vol[29]) {
		t.Fatalf("36-bar window cannot fill on 30 rows, got %v", vol[29])
	}
}

func TestBuildMarketDerivativesLayer(t *testing.T) {
	withDerivs := func(i int) map[string]any {
		b := trendingBar(i)
		b["funding_rate"] = 0.0001
		b["open_interest"] = 1000 + float64(i)
		return b
	}
	doc := marketDoc(t, 48, withDerivs)
	out := mustBuildMarket(t, doc, DefaultWindows(), MarketFull)

	fr, ok := out.Column("FR_MA_48")
	if !ok || ts.IsMissing(fr[47]) || math.Abs(fr[47]-0.0001) > 1e-12 {
		t.Fatalf("FR_MA_48[47] = %v ok=%v, want 0.0001", fr, ok)
	}
	slope, _ := out.Column("FR_Slope_8")
	if slope[47] != 0 {
		t.Fatalf("constant funding has zero slope, got %v", slope[47])
	}
	oi, _ := out.Column("OI_Change_Rate")
	want := 4.0 / (1000 + 43)
	if math.Abs(oi[47]-want) > 1e-12 {
		t.Fatalf("OI_Change_Rate[47] = %v, want %v", oi[47], want)
	}
}

func TestBuildMarketDerivativesNeedBothInputs(t *testing.T) {
	frOnly := func(i int) map[string]any {
		b := trendingBar(i)
		b["funding_rate"] = 0.0001
		return b
	}
	out := mustBuildMarket(t, marketDoc(t, 48, frOnly), DefaultWindows(), MarketFull)
	if out.Has("FR_MA_48") || out.Has("OI_Change_Rate") {
		t.Fatalf("derivatives layer requires both funding and open interest")
	}
}

func TestBuildMarketEmptyInput(t *testing.T) {
	out := mustBuildMarket(t, nil, DefaultWindows(), MarketConcise)
	if !out.IsEmpty() {
		t.Fatalf("no source should yield an empty table")
	}
}

func TestBuildMarketDeterministic(t *testing.T) {
	doc := marketDoc(t, 48, trendingBar)
	a := mustBuildMarket(t, doc, DefaultWindows(), MarketFull)
	b := mustBuildMarket(t, doc, DefaultWindows(), MarketFull)

	colsA, colsB := a.Columns(), b.Columns()
	if len(colsA) != len(colsB) {
		t.Fatalf("column sets differ: %v vs %v", colsA, colsB)
	}
	for _, col := range colsA {
		va, _ := a.Column(col)
		vb, ok := b.Column(col)
		if !ok {
			t.Fatalf("column %s absent on rebuild", col)
		}
		for i := range va {
			same := va[i] == vb[i] || (ts.IsMissing(va[i]) && ts.IsMissing(vb[i]))
			if !same {
				t.Fatalf("%s[%d]: %v vs %v", col, i, va[i], vb[i])
			}
		}
	}
}
