package analysis

import (
	"CoinScope/internal/indicators"
	"CoinScope/internal/timeseries"
)

// MarketMode selects the market projection.
type MarketMode string

const (
	// MarketConcise keeps only the columns the advisory prompt consumes.
	MarketConcise MarketMode = "concise"
	// MarketFull keeps every intermediate alongside the inputs.
	MarketFull MarketMode = "full"
)

// NormalizeMarketMode folds unknown modes to concise.
func NormalizeMarketMode(s string) MarketMode {
	if MarketMode(s) == MarketFull {
		return MarketFull
	}
	return MarketConcise
}

// conciseMarketColumns is the projection order of the concise mode; absent
// columns are simply not included (intersection semantics).
var conciseMarketColumns = []string{
	"Close_Price", "RSI_14", "MACD_Hist", "CCI_14", "BB_Pct_B", "ATR_14",
	"CMF_20", "VWAP_Dev_Pct", "CHOP_14", "Reg_Outlier_Signal", "OBV_calc",
}

// derivedMarketColumns guards loaded extras from clobbering pipeline
// outputs.
var derivedMarketColumns = map[string]bool{
	"Close_Price": true,
	"EMA_12":      true, "EMA_26": true,
	"MACD_Line": true, "MACD_Signal": true, "MACD_Hist": true,
	"CCI_14": true, "RSI_14": true, "ATR_14": true,
	"BB_Mid_20": true, "BB_Upper_20": true, "BB_Lower_20": true, "BB_Pct_B": true,
	"OBV_calc": true,
	"VWAP_24":  true, "VWAP_Dev_Pct": true,
	"CMF_20": true, "CHOP_14": true,
	"LinReg_Mid_20": true, "LinReg_Std_20": true,
	"LinReg_Upper_20": true, "LinReg_Lower_20": true,
	"Reg_Outlier_Signal": true, "Realized_Vol_36": true,
	"FR_MA_48": true, "FR_Std_48": true, "FR_Slope_8": true,
	"OI_Change_Rate": true,
}

// columnWriter accumulates Set calls and keeps the first failure. Set can
// only fail on a duplicate or mis-sized column, which is a bug in the
// pipeline, not a data condition.
type columnWriter struct {
	t   *timeseries.Table
	err error
}

func (cw *columnWriter) set(name string, values []float64) {
	if cw.err != nil {
		return
	}
	cw.err = cw.t.Set(name, values)
}

// BuildMarket derives the technical-indicator columns over a loaded market
// table. Layers gate on history depth: too few rows means the layer's
// columns are absent entirely, never present-but-empty. The input table is
// extended in place and projected per mode.
func BuildMarket(t *timeseries.Table, w Windows, mode MarketMode) (*timeseries.Table, error) {
	if t.IsEmpty() {
		return t, nil
	}
	close, hasClose := t.Column("close")
	if !hasClose {
		return project(t, mode), nil
	}
	cw := &columnWriter{t: t}

	closePrice := make([]float64, len(close))
	copy(closePrice, close)
	cw.set("Close_Price", closePrice)

	high, hasHigh := t.Column("high")
	low, hasLow := t.Column("low")
	volume, hasVolume := t.Column("volume")
	rows := t.Len()

	if rows >= w.Oscillator {
		ema12 := timeseries.EMA(close, w.MACDFast)
		ema26 := timeseries.EMA(close, w.MACDSlow)
		cw.set("EMA_12", ema12)
		cw.set("EMA_26", ema26)
		line, signal, hist := indicators.MACD(close, w.MACDFast, w.MACDSlow, w.MACDSignal)
		cw.set("MACD_Line", line)
		cw.set("MACD_Signal", signal)
		cw.set("MACD_Hist", hist)

		cw.set("RSI_14", indicators.RSI(close, w.Oscillator))
		if hasHigh && hasLow {
			cw.set("CCI_14", indicators.CCI(high, low, close, w.Oscillator))
			cw.set("ATR_14", indicators.ATR(high, low, close, w.Oscillator))
		}
		mid, upper, lower := indicators.Bollinger(close, w.Band, w.BandK)
		cw.set("BB_Mid_20", mid)
		cw.set("BB_Upper_20", upper)
		cw.set("BB_Lower_20", lower)
		cw.set("BB_Pct_B", indicators.PercentB(close, upper, lower))
		if hasVolume {
			cw.set("OBV_calc", indicators.OBV(close, volume))
		}
	}

	if rows >= w.Session {
		if hasHigh && hasLow && hasVolume {
			vwap := indicators.VWAP(high, low, close, volume, w.Session)
			cw.set("VWAP_24", vwap)
			cw.set("VWAP_Dev_Pct", indicators.VWAPDeviation(close, vwap))
			cw.set("CMF_20", indicators.CMF(high, low, close, volume, w.Band))
		}
		if hasHigh && hasLow {
			cw.set("CHOP_14", indicators.Choppiness(high, low, w.Oscillator))
		}
		regMid, regUpper, regLower := indicators.RegressionChannel(close, w.Band, w.OutlierK)
		cw.set("LinReg_Mid_20", regMid)
		cw.set("LinReg_Std_20", timeseries.Std(close, w.Band))
		cw.set("LinReg_Upper_20", regUpper)
		cw.set("LinReg_Lower_20", regLower)
		cw.set("Reg_Outlier_Signal", indicators.OutlierSignal(close, regUpper, regLower))
		cw.set("Realized_Vol_36", indicators.RealizedVol(close, w.Volatility, indicators.BarsPerYear(w.Granularity)))
	}

	fr, hasFR := t.Column("Funding_Rate")
	oi, hasOI := t.Column("Open_Interest")
	if hasFR && hasOI && rows >= w.Daily {
		cw.set("FR_MA_48", timeseries.Mean(fr, w.Daily))
		cw.set("FR_Std_48", timeseries.Std(fr, w.Daily))
		cw.set("FR_Slope_8", timeseries.LinRegSlope(fr, w.SentimentSmooth))
		cw.set("OI_Change_Rate", timeseries.PctChange(oi, w.OIChangeLag))
	}

	if cw.err != nil {
		return nil, cw.err
	}
	return project(t, mode), nil
}

func project(t *timeseries.Table, mode MarketMode) *timeseries.Table {
	if mode == MarketFull {
		return t
	}
	return t.Select(conciseMarketColumns...)
}
