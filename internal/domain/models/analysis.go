package models

import (
	"strings"
	"time"

	"CoinScope/internal/timeseries"
)

// AnalysisBundle is the consolidated output of one analysis pass for a
// symbol. Sections that could not be built are nil, with the failure
// recorded under Errors by section name.
type AnalysisBundle struct {
	Symbol      string
	GeneratedAt time.Time
	Market      *timeseries.Table
	Chain       *timeseries.Table
	Developer   *timeseries.Table
	Sentiment   *timeseries.Table
	Errors      map[string]string
}

// Has reports whether the named section was assigned a table.
func (b *AnalysisBundle) Has(name string) bool {
	switch name {
	case "market":
		return b.Market != nil
	case "chain":
		return b.Chain != nil
	case "dev":
		return b.Developer != nil
	case "sentiment":
		return b.Sentiment != nil
	default:
		return false
	}
}

// Summary renders the bundle in the compact "section: rows=N cols=..."
// form consumed by the advisory prompt and the run logs.
func (b *AnalysisBundle) Summary() string {
	sections := []struct {
		name  string
		table *timeseries.Table
	}{
		{"market", b.Market},
		{"chain", b.Chain},
		{"dev", b.Developer},
		{"sentiment", b.Sentiment},
	}
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.name+": "+s.table.Summary())
	}
	return strings.Join(parts, "; ")
}
