package analysis

import (
	"math/rand"

	"CoinScope/internal/timeseries"
)

// ValuationProvider supplies the per-row spent-output profit ratio used by
// the on-chain flattener. Pluggable so a real SOPR feed can replace the
// synthetic default, and so tests can pin the series.
type ValuationProvider interface {
	SOPR(n int) []float64
}

// SyntheticValuation jitters SOPR around break-even (±2.5%). This is the
// one intentionally non-deterministic data source in the pipeline; seed it
// for reproducible runs.
type SyntheticValuation struct {
	rng *rand.Rand
}

func NewSyntheticValuation(seed int64) *SyntheticValuation {
	return &SyntheticValuation{rng: rand.New(rand.NewSource(seed))}
}

func (s *SyntheticValuation) SOPR(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0 + (s.rng.Float64()-0.5)*0.05
	}
	return out
}

// realizedPremium scales realized price into the synthetic spot close.
const realizedPremium = 1.15

// BuildChain derives the on-chain valuation and flow columns. The
// flattener synthesizes Close, SOPR_Raw and Exchange_Netflow_USD first;
// ratios and accumulations follow. Derivations whose inputs are absent are
// skipped, leaving their columns out of the table.
func BuildChain(t *timeseries.Table, w Windows, vp ValuationProvider) (*timeseries.Table, error) {
	if t.IsEmpty() {
		return t, nil
	}
	cw := &columnWriter{t: t}
	rows := t.Len()

	realized, hasRealized := t.Column("UTXO_Realized_Price")

	var closes []float64
	if hasRealized {
		closes = make([]float64, rows)
		for i, v := range realized {
			if timeseries.IsMissing(v) {
				closes[i] = timeseries.Missing
				continue
			}
			closes[i] = realizedPremium * v
		}
		cw.set("Close", closes)
	}

	sopr := vp.SOPR(rows)
	cw.set("SOPR_Raw", sopr)

	var netflow []float64
	if whale, ok := t.Column("Whale_Balance"); ok && hasRealized {
		delta := timeseries.Diff(whale)
		netflow = make([]float64, rows)
		for i := range netflow {
			if timeseries.IsMissing(delta[i]) || timeseries.IsMissing(closes[i]) {
				netflow[i] = timeseries.Missing
				continue
			}
			netflow[i] = -delta[i] * closes[i]
		}
		cw.set("Exchange_Netflow_USD", netflow)
	}

	if hasRealized {
		cw.set("MVRV_Ratio", timeseries.Div(closes, realized))
	}

	soprMA := timeseries.Mean(sopr, w.SOPRSmooth)
	cw.set("SOPR_MA_7", soprMA)
	soprSignal := make([]float64, rows)
	for i, v := range soprMA {
		if v > 1.0 { // missing compares false
			soprSignal[i] = 1
		}
	}
	cw.set("SOPR_Signal", soprSignal)

	if netflow != nil {
		acc := timeseries.Sum(netflow, w.Daily)
		cw.set("Netflow_Acc_48", acc)
		// Negative accumulation means net exchange outflow, read as
		// accumulation pressure: +1. Zero and missing read -1.
		accSignal := make([]float64, rows)
		for i, v := range acc {
			if v < 0 {
				accSignal[i] = 1
			} else {
				accSignal[i] = -1
			}
		}
		cw.set("Netflow_Signal", accSignal)
	}

	if nz, ok := t.Column("Non_Zero_Addresses"); ok {
		cw.set("NZ_Address_Growth_48", timeseries.PctChange(nz, w.Daily))
	}

	if cw.err != nil {
		return nil, cw.err
	}
	return t, nil
}
