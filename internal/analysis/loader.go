package analysis

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"CoinScope/internal/domain/models"
	"CoinScope/internal/timeseries"
)

// Loaders turn raw resource documents into tables. They never fail: a
// missing, unreadable or empty document yields an empty table, and a value
// that does not parse as a number becomes a missing cell. Rows sort
// ascending by timestamp; duplicate timestamps keep the first occurrence.

type rawRecord struct {
	at   time.Time
	data map[string]any
}

// parseTimestamp accepts RFC3339 strings and epoch numbers. Epoch values
// above 1e11 are taken as milliseconds.
func parseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC(), true
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC(), true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(f), true
		}
		return time.Time{}, false
	case float64:
		return epochToTime(x), true
	default:
		return time.Time{}, false
	}
}

func epochToTime(f float64) time.Time {
	if f > 1e11 { // milliseconds
		f /= 1000
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// numberValue coerces a decoded JSON value into a float64, tolerating
// quoted numbers. Anything else is a missing cell.
func numberValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// lookupPath walks nested objects along path and returns the leaf value.
func lookupPath(m map[string]any, path ...string) (any, bool) {
	cur := any(m)
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// collectRecords extracts the record list under listKey, resolves each
// record's timestamp under tsKey, drops records without one, sorts
// ascending and deduplicates keeping the first occurrence.
func collectRecords(data []byte, listKey, tsKey string) []rawRecord {
	if len(data) == 0 {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	list, ok := doc[listKey].([]any)
	if !ok {
		return nil
	}
	recs := make([]rawRecord, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tv, ok := obj[tsKey]
		if !ok {
			continue
		}
		at, ok := parseTimestamp(tv)
		if !ok {
			continue
		}
		recs = append(recs, rawRecord{at: at, data: obj})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].at.Before(recs[j].at) })
	out := recs[:0]
	for _, r := range recs {
		if len(out) > 0 && out[len(out)-1].at.Equal(r.at) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// columnSpec maps a (possibly nested) source field onto a table column.
type columnSpec struct {
	column string
	path   []string
}

// tableFromRecords materializes the index and one column per mapping. A
// column is created only when at least one record carries the field.
func tableFromRecords(recs []rawRecord, specs []columnSpec) *timeseries.Table {
	index := make([]time.Time, len(recs))
	for i, r := range recs {
		index[i] = r.at
	}
	t := timeseries.New(index)
	for _, spec := range specs {
		values := timeseries.MissingSlice(len(recs))
		seen := false
		for i, r := range recs {
			raw, ok := lookupPath(r.data, spec.path...)
			if !ok {
				continue
			}
			seen = true
			if f, ok := numberValue(raw); ok {
				values[i] = f
			}
		}
		if seen {
			// fresh column name in a fresh table; Set cannot fail here
			_ = t.Set(spec.column, values)
		}
	}
	return t
}

var chainColumns = []columnSpec{
	{column: "UTXO_Realized_Price", path: []string{"valuation_metrics", "utxo_realized_price"}},
	{column: "Non_Zero_Addresses", path: []string{"network_activity", "active_addresses"}},
	{column: "Whale_Balance", path: []string{"supply_distribution", "whale_aggregate_balance"}},
}

var developerColumns = []columnSpec{
	{column: "Commit_Count", path: []string{"repo_stats", "total_commits"}},
	{column: "Core_Dev_Commits", path: []string{"repo_stats", "core_contributors_commits"}},
}

// LoadChain parses an on-chain resource document.
func LoadChain(data []byte) *timeseries.Table {
	return tableFromRecords(collectRecords(data, "chain_data", "timestamp"), chainColumns)
}

// LoadDeveloper parses a development-activity resource document.
func LoadDeveloper(data []byte) *timeseries.Table {
	return tableFromRecords(collectRecords(data, "activity_log", "collected_at"), developerColumns)
}

// marketCanonical lists the OHLCV and derivative fields every bar may
// carry, in column order.
var marketCanonical = []struct{ field, column string }{
	{"open", "open"},
	{"high", "high"},
	{"low", "low"},
	{"close", "close"},
	{"volume", "volume"},
	{"funding_rate", "Funding_Rate"},
	{"open_interest", "Open_Interest"},
}

// LoadMarket parses a market resource document. Beyond the canonical
// fields, any bar field that is numeric in at least one record is
// preserved as an input column under its own name unless it would collide
// with a derived market column.
func LoadMarket(data []byte) *timeseries.Table {
	recs := collectRecords(data, "bars", "timestamp")

	present := make(map[string]bool)
	numeric := make(map[string]bool)
	for _, r := range recs {
		for key, raw := range r.data {
			if key == "timestamp" {
				continue
			}
			present[key] = true
			if !numeric[key] {
				if _, ok := numberValue(raw); ok {
					numeric[key] = true
				}
			}
		}
	}

	specs := make([]columnSpec, 0, len(present))
	canonical := make(map[string]bool, len(marketCanonical))
	for _, c := range marketCanonical {
		canonical[c.field] = true
		if present[c.field] {
			specs = append(specs, columnSpec{column: c.column, path: []string{c.field}})
		}
	}
	extras := make([]string, 0, len(present))
	for key := range present {
		if canonical[key] || !numeric[key] || derivedMarketColumns[key] {
			continue
		}
		extras = append(extras, key)
	}
	sort.Strings(extras)
	for _, key := range extras {
		specs = append(specs, columnSpec{column: key, path: []string{key}})
	}
	return tableFromRecords(recs, specs)
}

// LoadSocial parses a social resource document into posts. Posts without a
// timestamp are dropped; order is preserved.
func LoadSocial(data []byte) []models.SocialPost {
	if len(data) == 0 {
		return nil
	}
	var doc models.SocialDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	posts := make([]models.SocialPost, 0, len(doc.Posts))
	for _, p := range doc.Posts {
		if p.Timestamp.IsZero() {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}
