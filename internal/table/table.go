package table

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateColumn indicates a column name used twice.
	ErrDuplicateColumn = errors.New("table: duplicate column")
	// ErrRowWidth indicates a row with a different width than the header.
	ErrRowWidth = errors.New("table: row width mismatch")
	// ErrUnknownColumn indicates a reference to a column the table does not have.
	ErrUnknownColumn = errors.New("table: unknown column")
)

// Table is an immutable rectangular set of named columns. Every
// transformation returns a new Table and leaves the receiver untouched.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New builds a table from a header and rows. Rows are copied.
func New(columns []string, rows ...[]Value) (*Table, error) {
	index, err := indexColumns(columns)
	if err != nil {
		return nil, err
	}
	copied := make([][]Value, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRowWidth, i, len(row), len(columns))
		}
		copied = append(copied, append([]Value(nil), row...))
	}
	return &Table{columns: append([]string(nil), columns...), index: index, rows: copied}, nil
}

// Empty returns a table with a header and no rows. Duplicate names are dropped.
func Empty(columns ...string) *Table {
	b := NewBuilder(dedupe(columns)...)
	return b.Table()
}

func indexColumns(columns []string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, ok := index[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		index[name] = i
	}
	return index, nil
}

func dedupe(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Columns returns a copy of the header.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

// Has reports whether the table has every named column.
func (t *Table) Has(columns ...string) bool {
	if t == nil {
		return len(columns) == 0
	}
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			return false
		}
	}
	return true
}

// Require fails with ErrUnknownColumn naming the first missing column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	return nil
}

// Get returns the value at row i and column col, or null when the column is absent.
func (t *Table) Get(i int, col string) Value {
	j, ok := t.index[col]
	if !ok {
		return Null()
	}
	return t.rows[i][j]
}

// Row returns a read-only view of row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Values returns a copy of row i in header order.
func (t *Table) Values(i int) []Value {
	return append([]Value(nil), t.rows[i]...)
}

// Column returns a copy of one column.
func (t *Table) Column(col string) ([]Value, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Equal reports whether both tables have the same header and values.
func (t *Table) Equal(o *Table) bool {
	if t.Width() != o.Width() || t.Len() != o.Len() {
		return false
	}
	if t == nil || o == nil {
		return true
	}
	for i, c := range t.columns {
		if o.columns[i] != c {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if !t.rows[i][j].Equal(o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Index returns the row position.
func (r Row) Index() int { return r.i }

// Get returns the value in column col.
func (r Row) Get(col string) Value { return r.t.Get(r.i, col) }

// Float returns the numeric value in column col.
func (r Row) Float(col string) (float64, bool) { return r.Get(col).Float() }

// Text returns the text of column col.
func (r Row) Text(col string) string { return r.Get(col).Text() }

// Time returns the timestamp in column col.
func (r Row) Time(col string) (time.Time, bool) { return r.Get(col).Time() }

// Builder accumulates rows for a new table.
type Builder struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewBuilder starts a table with the given header. Names must be unique.
func NewBuilder(columns ...string) *Builder {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &Builder{columns: append([]string(nil), columns...), index: index}
}

// Add appends a row. Missing trailing values are null and extra values are dropped.
func (b *Builder) Add(values ...Value) *Builder {
	row := make([]Value, len(b.columns))
	copy(row, values)
	b.rows = append(b.rows, row)
	return b
}

// AddMap appends a row from named values. Unknown names are ignored.
func (b *Builder) AddMap(values map[string]Value) *Builder {
	row := make([]Value, len(b.columns))
	for name, v := range values {
		if j, ok := b.index[name]; ok {
			row[j] = v
		}
	}
	b.rows = append(b.rows, row)
	return b
}

// Len returns the number of rows added so far.
func (b *Builder) Len() int { return len(b.rows) }

// Table finalizes the builder. The builder must not be used afterwards.
func (b *Builder) Table() *Table {
	return &Table{columns: b.columns, index: b.index, rows: b.rows}
}
