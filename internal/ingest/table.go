package ingest

import (
	"strings"
)

// Format is the file format a table was read from
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Table is a parsed upload. Every row has len(Columns) cells.
type Table struct {
	Name    string     `json:"name"`
	Format  Format     `json:"format"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the index of the column named name, ignoring case and
// surrounding spaces.
func (t *Table) Column(name string) (int, bool) {
	if t == nil {
		return -1, false
	}
	want := normalizeHeader(name)
	for i, c := range t.Columns {
		if normalizeHeader(c) == want {
			return i, true
		}
	}
	return -1, false
}

// FirstColumn returns the first column matching any of names, in order of names
func (t *Table) FirstColumn(names ...string) (string, int, bool) {
	for _, n := range names {
		if idx, ok := t.Column(n); ok {
			return t.Columns[idx], idx, true
		}
	}
	return "", -1, false
}

// Values returns the cells of column idx
func (t *Table) Values(idx int) []string {
	if t == nil || idx < 0 || idx >= len(t.Columns) {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Head returns a table holding the first n rows
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.Len() {
		n = t.Len()
	}
	return &Table{Name: t.Name, Format: t.Format, Columns: t.Columns, Rows: t.Rows[:n:n]}
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
