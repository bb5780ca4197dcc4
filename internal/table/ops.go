package table

import (
	"fmt"
	"sort"
)

// Select returns the named columns in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	index, err := indexColumns(columns)
	if err != nil {
		return nil, err
	}
	rows := make([][]Value, len(t.rows))
	for i, row := range t.rows {
		out := make([]Value, len(columns))
		for j, c := range columns {
			out[j] = row[t.index[c]]
		}
		rows[i] = out
	}
	return &Table{columns: append([]string(nil), columns...), index: index, rows: rows}, nil
}

// Drop removes the named columns. Absent names are ignored.
func (t *Table) Drop(columns ...string) *Table {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// Rename renames columns by the mapping. Names not in the table are ignored.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	columns := make([]string, len(t.columns))
	for i, c := range t.columns {
		if to, ok := mapping[c]; ok {
			columns[i] = to
			continue
		}
		columns[i] = c
	}
	index, err := indexColumns(columns)
	if err != nil {
		return nil, err
	}
	return &Table{columns: columns, index: index, rows: t.rows}, nil
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([][]Value, 0, len(t.rows))
	for i, row := range t.rows {
		if keep(Row{t: t, i: i}) {
			rows = append(rows, row)
		}
	}
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// WithColumn adds a column, or overwrites it when present, computing each value from its row.
func (t *Table) WithColumn(name string, fn func(Row) Value) *Table {
	j, exists := t.index[name]
	columns := t.columns
	index := t.index
	if !exists {
		columns = append(append([]string(nil), t.columns...), name)
		index = make(map[string]int, len(columns))
		for i, c := range columns {
			index[c] = i
		}
		j = len(columns) - 1
	}
	rows := make([][]Value, len(t.rows))
	for i, row := range t.rows {
		out := make([]Value, len(columns))
		copy(out, row)
		out[j] = fn(Row{t: t, i: i})
		rows[i] = out
	}
	return &Table{columns: columns, index: index, rows: rows}
}

// SortKey orders by one column.
type SortKey struct {
	Column string
	Desc   bool
}

// Asc sorts ascending by column.
func Asc(column string) SortKey { return SortKey{Column: column} }

// Desc sorts descending by column.
func Desc(column string) SortKey { return SortKey{Column: column, Desc: true} }

// SortBy sorts rows stably by the keys. Nulls sort last in either direction.
func (t *Table) SortBy(keys ...SortKey) *Table {
	rows := append([][]Value(nil), t.rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		for _, key := range keys {
			j, ok := t.index[key.Column]
			if !ok {
				continue
			}
			va, vb := rows[a][j], rows[b][j]
			if va.IsNull() || vb.IsNull() {
				if va.IsNull() == vb.IsNull() {
					continue
				}
				return vb.IsNull()
			}
			c := va.Compare(vb)
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// Distinct keeps the first row of each distinct combination of the named
// columns, or of all columns when none are named.
func (t *Table) Distinct(columns ...string) *Table {
	if len(columns) == 0 {
		columns = t.columns
	}
	seen := make(map[string]bool, len(t.rows))
	rows := make([][]Value, 0, len(t.rows))
	for i, row := range t.rows {
		key := t.rowKey(i, columns)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

func (t *Table) rowKey(i int, columns []string) string {
	key := ""
	for _, c := range columns {
		key += t.Get(i, c).Key() + "\x1f"
	}
	return key
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n < 0 {
		n = 0
	}
	return &Table{columns: t.columns, index: t.index, rows: t.rows[:n:n]}
}

// Tail returns the last n rows.
func (t *Table) Tail(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n < 0 {
		n = 0
	}
	return &Table{columns: t.columns, index: t.index, rows: t.rows[len(t.rows)-n:]}
}

// Concat stacks tables vertically. The header is the union of all headers in
// first-seen order; cells a table lacks are null. Nil tables are skipped.
func Concat(tables ...*Table) *Table {
	var columns []string
	seen := map[string]bool{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}
	b := NewBuilder(columns...)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for i := range t.rows {
			row := make([]Value, len(columns))
			for j, c := range columns {
				row[j] = t.Get(i, c)
			}
			b.rows = append(b.rows, row)
		}
	}
	return b.Table()
}

// Lookup builds a key -> value map from two columns. Later rows win, and rows
// with a null key are skipped.
func (t *Table) Lookup(keyColumn, valueColumn string) (map[string]Value, error) {
	if err := t.Require(keyColumn, valueColumn); err != nil {
		return nil, err
	}
	out := make(map[string]Value, len(t.rows))
	for i := range t.rows {
		k := t.Get(i, keyColumn)
		if k.IsNull() {
			continue
		}
		out[k.Text()] = t.Get(i, valueColumn)
	}
	return out, nil
}

// MapColumn sets column dst to the value mapped from column key. Keys absent
// from the map produce null.
func (t *Table) MapColumn(dst, key string, mapping map[string]Value) (*Table, error) {
	if err := t.Require(key); err != nil {
		return nil, err
	}
	return t.WithColumn(dst, func(r Row) Value {
		k := r.Get(key)
		if k.IsNull() {
			return Null()
		}
		return mapping[k.Text()]
	}), nil
}

// Unique returns the distinct non-null values of a column in ascending order.
func (t *Table) Unique(column string) []Value {
	j, ok := t.index[column]
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []Value
	for _, row := range t.rows {
		v := row[j]
		if v.IsNull() || seen[v.Key()] {
			continue
		}
		seen[v.Key()] = true
		out = append(out, v)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Compare(out[b]) < 0 })
	return out
}

// Convert parses the named columns into kind. Values already of that kind
// are kept; text is parsed and other kinds are rendered to text first.
func (t *Table) Convert(kind Kind, columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	out := t
	for _, c := range columns {
		var parseErr error
		out = out.WithColumn(c, func(r Row) Value {
			v := r.Get(c)
			if v.IsNull() || v.Kind() == kind {
				return v
			}
			parsed, err := Parse(v.Text(), kind)
			if err != nil && parseErr == nil {
				parseErr = fmt.Errorf("column %q row %d: %w", c, r.Index(), err)
			}
			return parsed
		})
		if parseErr != nil {
			return nil, parseErr
		}
	}
	return out, nil
}

// Range returns the smallest and largest non-null value of a column.
func (t *Table) Range(column string) (lo, hi Value, ok bool) {
	j, exists := t.index[column]
	if !exists {
		return Null(), Null(), false
	}
	for _, row := range t.rows {
		v := row[j]
		if v.IsNull() {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		if v.Compare(lo) < 0 {
			lo = v
		}
		if v.Compare(hi) > 0 {
			hi = v
		}
	}
	return lo, hi, ok
}
