package analysis

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	ts "CoinScope/internal/timeseries"
)

// fixedValuation pins SOPR for deterministic chain builds.
type fixedValuation struct{ v float64 }

func (f fixedValuation) SOPR(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f.v
	}
	return out
}

func chainDoc(t *testing.T, n int, snap func(i int) map[string]any) []byte {
	t.Helper()
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	list := make([]any, n)
	for i := 0; i < n; i++ {
		s := snap(i)
		s["timestamp"] = base.Add(time.Duration(i) * 30 * time.Minute).Format(time.RFC3339)
		list[i] = s
	}
	data, err := json.Marshal(map[string]any{"symbol": "BTC", "chain_data": list})
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}
	return data
}

func mustBuildChain(t *testing.T, doc []byte, vp ValuationProvider) *ts.Table {
	t.Helper()
	out, err := BuildChain(LoadChain(doc), DefaultWindows(), vp)
	if err != nil {
		t.Fatalf("BuildChain: %v", err)
	}
	return out
}

func TestBuildChainFlattener(t *testing.T) {
	doc := chainDoc(t, 49, func(i int) map[string]any {
		return map[string]any{
			"valuation_metrics":   map[string]any{"utxo_realized_price": 60000.0},
			"supply_distribution": map[string]any{"whale_aggregate_balance": 5000000.0 + float64(i)*100},
		}
	})
	out := mustBuildChain(t, doc, fixedValuation{1.0})

	closes, _ := out.Column("Close")
	if closes[0] != 1.15*60000 {
		t.Fatalf("Close = %v, want realized price with premium", closes[0])
	}
	mvrv, _ := out.Column("MVRV_Ratio")
	if math.Abs(mvrv[10]-1.15) > 1e-12 {
		t.Fatalf("MVRV = %v, want 1.15", mvrv[10])
	}

	netflow, _ := out.Column("Exchange_Netflow_USD")
	if !ts.IsMissing(netflow[0]) {
		t.Fatalf("first netflow has no balance delta, got %v", netflow[0])
	}
	// growing whale balance means coins leaving exchanges: negative netflow
	if netflow[1] >= 0 {
		t.Fatalf("netflow[1] = %v, want negative for growing whale balance", netflow[1])
	}

	acc, _ := out.Column("Netflow_Acc_48")
	if !ts.IsMissing(acc[47]) {
		t.Fatalf("accumulation window touching the seeded first row must be missing")
	}
	if ts.IsMissing(acc[48]) || acc[48] >= 0 {
		t.Fatalf("acc[48] = %v, want defined negative", acc[48])
	}
	sig, _ := out.Column("Netflow_Signal")
	if sig[48] != 1 {
		t.Fatalf("negative accumulation reads +1, got %v", sig[48])
	}
	if sig[47] != -1 {
		t.Fatalf("missing accumulation reads -1, got %v", sig[47])
	}
}

func TestBuildChainZeroNetflowReadsNegative(t *testing.T) {
	doc := chainDoc(t, 49, func(i int) map[string]any {
		return map[string]any{
			"valuation_metrics":   map[string]any{"utxo_realized_price": 100.0},
			"supply_distribution": map[string]any{"whale_aggregate_balance": 5000000.0},
		}
	})
	out := mustBuildChain(t, doc, fixedValuation{1.0})
	sig, _ := out.Column("Netflow_Signal")
	if sig[48] != -1 {
		t.Fatalf("zero accumulation reads -1, got %v", sig[48])
	}
}

func TestBuildChainSOPRSignal(t *testing.T) {
	doc := chainDoc(t, 10, func(i int) map[string]any {
		return map[string]any{"valuation_metrics": map[string]any{"utxo_realized_price": 100.0}}
	})

	out := mustBuildChain(t, doc, fixedValuation{1.03})
	ma, _ := out.Column("SOPR_MA_7")
	sig, _ := out.Column("SOPR_Signal")
	if !ts.IsMissing(ma[5]) || sig[5] != 0 {
		t.Fatalf("warmup: ma=%v sig=%v, want missing ma and 0 signal", ma[5], sig[5])
	}
	if math.Abs(ma[6]-1.03) > 1e-12 || sig[6] != 1 {
		t.Fatalf("profitable SOPR: ma=%v sig=%v, want 1.03 and 1", ma[6], sig[6])
	}

	out = mustBuildChain(t, doc, fixedValuation{0.98})
	sig, _ = out.Column("SOPR_Signal")
	for i, v := range sig {
		if v != 0 {
			t.Fatalf("loss-territory SOPR must signal 0, row %d got %v", i, v)
		}
	}
}

func TestBuildChainAddressGrowth(t *testing.T) {
	doc := chainDoc(t, 49, func(i int) map[string]any {
		active := 100.0
		if i == 48 {
			active = 150
		}
		return map[string]any{"network_activity": map[string]any{"active_addresses": active}}
	})
	out := mustBuildChain(t, doc, fixedValuation{1.0})
	growth, _ := out.Column("NZ_Address_Growth_48")
	if math.Abs(growth[48]-0.5) > 1e-12 {
		t.Fatalf("growth[48] = %v, want 0.5", growth[48])
	}
	if !ts.IsMissing(growth[47]) {
		t.Fatalf("lag window short of history must be missing")
	}
}

func TestBuildChainWithoutWhaleBalance(t *testing.T) {
	doc := chainDoc(t, 8, func(i int) map[string]any {
		return map[string]any{"valuation_metrics": map[string]any{"utxo_realized_price": 100.0}}
	})
	out := mustBuildChain(t, doc, fixedValuation{1.0})
	if out.Has("Exchange_Netflow_USD") || out.Has("Netflow_Acc_48") || out.Has("Netflow_Signal") {
		t.Fatalf("netflow columns require whale balance, got %v", out.Columns())
	}
	if !out.Has("SOPR_MA_7") || !out.Has("Close") {
		t.Fatalf("independent derivations should still run, got %v", out.Columns())
	}
}

func TestBuildChainIdempotentUnderFixedValuation(t *testing.T) {
	doc := chainDoc(t, 49, func(i int) map[string]any {
		return map[string]any{
			"valuation_metrics":   map[string]any{"utxo_realized_price": 50000.0 + float64(i)},
			"network_activity":    map[string]any{"active_addresses": 1000.0 + float64(i)},
			"supply_distribution": map[string]any{"whale_aggregate_balance": 5000000.0 - float64(i)*10},
		}
	})
	a := mustBuildChain(t, doc, fixedValuation{1.01})
	b := mustBuildChain(t, doc, fixedValuation{1.01})
	for _, col := range a.Columns() {
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
