package timeseries

import (
	"testing"
	"time"
)

func testIndex(n int) []time.Time {
	base := time.Date(2025, 11, 22, 10, 0, 0, 0, time.UTC)
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = base.Add(time.Duration(i) * 30 * time.Minute)
	}
	return idx
}

func TestTableSetAndColumn(t *testing.T) {
	tbl := New(testIndex(3))
	if err := tbl.Set("close", []float64{1, 2, 3}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, ok := tbl.Column("close")
	if !ok {
		t.Fatalf("expected column to exist")
	}
	if len(v) != 3 || v[2] != 3 {
		t.Fatalf("unexpected column values: %v", v)
	}
}

func TestTableSetRejectsDuplicate(t *testing.T) {
	tbl := New(testIndex(2))
	if err := tbl.Set("close", []float64{1, 2}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := tbl.Set("close", []float64{3, 4}); err == nil {
		t.Fatalf("expected duplicate column to be rejected")
	}
}

func TestTableSetRejectsLengthMismatch(t *testing.T) {
	tbl := New(testIndex(3))
	if err := tbl.Set("close", []float64{1, 2}); err == nil {
		t.Fatalf("expected length mismatch to be rejected")
	}
}

func TestTableSelectKeepsOnlyExisting(t *testing.T) {
	tbl := New(testIndex(2))
	_ = tbl.Set("a", []float64{1, 2})
	_ = tbl.Set("b", []float64{3, 4})

	out := tbl.Select("b", "nope", "a")
	cols := out.Columns()
	if len(cols) != 2 || cols[0] != "b" || cols[1] != "a" {
		t.Fatalf("unexpected projection: %v", cols)
	}
	if out.Len() != 2 {
		t.Fatalf("projection must keep the index, got %d rows", out.Len())
	}
}

func TestTableTail(t *testing.T) {
	tbl := New(testIndex(5))
	_ = tbl.Set("v", []float64{1, 2, 3, 4, 5})

	tail := tbl.Tail(2)
	if tail.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tail.Len())
	}
	v, _ := tail.Column("v")
	if v[0] != 4 || v[1] != 5 {
		t.Fatalf("unexpected tail values: %v", v)
	}

	if tbl.Tail(10).Len() != 5 {
		t.Fatalf("oversized tail must return the whole table")
	}
}

func TestTableRowsOmitMissing(t *testing.T) {
	tbl := New(testIndex(2))
	_ = tbl.Set("a", []float64{1, Missing})
	_ = tbl.Set("b", []float64{Missing, 2})

	rows := tbl.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if _, ok := rows[0].Values["b"]; ok {
		t.Fatalf("missing value must be omitted from the row map")
	}
	if rows[0].Values["a"] != 1 || rows[1].Values["b"] != 2 {
		t.Fatalf("unexpected row values: %+v", rows)
	}
}

func TestTableSummary(t *testing.T) {
	var nilTable *Table
	if nilTable.Summary() != "None" {
		t.Fatalf("nil table must summarize as None")
	}

	tbl := New(testIndex(3))
	if tbl.Summary() != "rows=3" {
		t.Fatalf("unexpected summary: %s", tbl.Summary())
	}

	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		_ = tbl.Set(name, []float64{1, 2, 3})
	}
	got := tbl.Summary()
	want := "rows=3 cols=a,b,c,d,e,f,..."
	if got != want {
		t.Fatalf("summary %q, want %q", got, want)
	}
}

func TestTableLastSkipsMissing(t *testing.T) {
	tbl := New(testIndex(3))
	_ = tbl.Set("v", []float64{1, 2, Missing})

	got, ok := tbl.Last("v")
	if !ok || got != 2 {
		t.Fatalf("expected last non-missing 2, got %v ok=%v", got, ok)
	}

	if _, ok := tbl.Last("absent"); ok {
		t.Fatalf("absent column must report not ok")
	}
}

func TestTableIsEmpty(t *testing.T) {
	var nilTable *Table
	if !nilTable.IsEmpty() {
		t.Fatalf("nil table must be empty")
	}
	if !New(nil).IsEmpty() {
		t.Fatalf("zero-row table must be empty")
	}
	if New(testIndex(1)).IsEmpty() {
		t.Fatalf("one-row table must not be empty")
	}
}
