package fetcher

import (
	"strings"
)

// Table is a header-addressed set of string rows. Rows may be shorter than
// the header; missing cells read as "".
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of col in the header, or -1. Matching ignores
// case and surrounding whitespace.
func (t Table) Index(col string) int {
	col = strings.TrimSpace(col)
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), col) {
			return i
		}
	}
	return -1
}

// Has reports whether every named column is present.
func (t Table) Has(cols ...string) bool {
	for _, c := range cols {
		if t.Index(c) < 0 {
			return false
		}
	}
	return true
}

// Cell returns row[i], or "" when the row is too short or i < 0.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Column returns every value of the named column, or nil when absent.
func (t Table) Column(name string) []string {
	i := t.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = Cell(row, i)
	}
	return out
}

// Filter returns a table with the same header and the rows keep accepts.
func (t Table) Filter(keep func(row []string) bool) Table {
	out := Table{Header: t.Header, Rows: make([][]string, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Where keeps rows whose col value equals value after trimming.
func (t Table) Where(col, value string) Table {
	i := t.Index(col)
	if i < 0 {
		return Table{Header: t.Header, Rows: [][]string{}}
	}
	value = strings.TrimSpace(value)
	return t.Filter(func(row []string) bool {
		return strings.TrimSpace(Cell(row, i)) == value
	})
}

// Drop returns a table without the named columns.
func (t Table) Drop(cols ...string) Table {
	skip := make(map[int]bool, len(cols))
	for _, c := range cols {
		if i := t.Index(c); i >= 0 {
			skip[i] = true
		}
	}
	if len(skip) == 0 {
		return t
	}

	keep := make([]int, 0, len(t.Header))
	header := make([]string, 0, len(t.Header))
	for i, h := range t.Header {
		if !skip[i] {
			keep = append(keep, i)
			header = append(header, h)
		}
	}

	out := Table{Header: header, Rows: make([][]string, len(t.Rows))}
	for r, row := range t.Rows {
		nr := make([]string, len(keep))
		for j, i := range keep {
			nr[j] = Cell(row, i)
		}
		out.Rows[r] = nr
	}
	return out
}
