// Package timeseries provides the time-indexed numeric table and the
// rolling-window primitives the domain pipelines are built from. Absent
// values are carried in-band as a NaN sentinel so they propagate through
// arithmetic the same way the upstream data frames propagate them.
package timeseries

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Missing is the sentinel stored in place of an absent value.
var Missing = math.NaN()

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Table is an ordered set of rows keyed by strictly increasing timestamps,
// with named float64 columns of equal length. Columns are append-only: a
// column is written exactly once and never mutated afterwards. The only way
// to narrow a table is the Select projection, which produces a new table.
type Table struct {
	index []time.Time
	order []string
	cols  map[string][]float64
}

// New builds a table over the given index. The index must already be sorted
// ascending and free of duplicates; loaders guarantee that before calling.
func New(index []time.Time) *Table {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Table{
		index: idx,
		cols:  make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.index)
}

// IsEmpty reports whether the table has no rows. Callers use emptiness, not
// errors, to detect a missing source.
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.index) == 0
}

// Timestamps returns the row index. The slice is shared; callers must treat
// it as read-only.
func (t *Table) Timestamps() []time.Time {
	return t.index
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the named column values. The slice is shared; callers must
// treat it as read-only.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.cols[name]
	return v, ok
}

// Set adds a column. Replacing an existing column or adding one whose length
// does not match the index is a programming error and is reported as such;
// data-shape irregularities never reach this point.
func (t *Table) Set(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("column name is empty")
	}
	if _, exists := t.cols[name]; exists {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(values) != len(t.index) {
		return fmt.Errorf("column %q has %d values, index has %d rows", name, len(values), len(t.index))
	}
	t.cols[name] = values
	t.order = append(t.order, name)
	return nil
}

// Select projects the table onto the requested columns, keeping only those
// that exist. Column data is shared with the receiver; both tables remain
// valid because columns are never mutated.
func (t *Table) Select(names ...string) *Table {
	out := &Table{
		index: t.index,
		cols:  make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		if v, ok := t.cols[name]; ok {
			out.cols[name] = v
			out.order = append(out.order, name)
		}
	}
	return out
}

// Tail returns a view over the trailing n rows (the whole table when n
// exceeds the row count).
func (t *Table) Tail(n int) *Table {
	if n >= len(t.index) {
		n = len(t.index)
	}
	if n < 0 {
		n = 0
	}
	start := len(t.index) - n
	out := &Table{
		index: t.index[start:],
		order: append([]string(nil), t.order...),
		cols:  make(map[string][]float64, len(t.cols)),
	}
	for name, v := range t.cols {
		out.cols[name] = v[start:]
	}
	return out
}

// Row is the JSON rendering of a single table row. Missing values are
// omitted from the value map.
type Row struct {
	Time   time.Time          `json:"t"`
	Values map[string]float64 `json:"v"`
}

// Rows materializes the table for serialization.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	rows := make([]Row, len(t.index))
	for i, ts := range t.index {
		values := make(map[string]float64, len(t.order))
		for _, name := range t.order {
			if v := t.cols[name][i]; !IsMissing(v) {
				values[name] = v
			}
		}
		rows[i] = Row{Time: ts, Values: values}
	}
	return rows
}

// Summary renders a compact "rows=N cols=a,b,c" description used when the
// table is embedded into a prompt or a log line. At most six column names
// are listed.
func (t *Table) Summary() string {
	if t == nil {
		return "None"
	}
	if len(t.order) == 0 {
		return fmt.Sprintf("rows=%d", len(t.index))
	}
	names := t.order
	suffix := ""
	if len(names) > 6 {
		names = names[:6]
		suffix = ",..."
	}
	return fmt.Sprintf("rows=%d cols=%s%s", len(t.index), strings.Join(names, ","), suffix)
}

// Last returns the most recent non-missing value of the named column.
func (t *Table) Last(name string) (float64, bool) {
	v, ok := t.cols[name]
	if !ok {
		return 0, false
	}
	for i := len(v) - 1; i >= 0; i-- {
		if !IsMissing(v[i]) {
			return v[i], true
		}
	}
	return 0, false
}
