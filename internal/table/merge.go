package table

// Join selects which unmatched rows a Merge keeps.
type Join uint8

const (
	InnerJoin Join = iota
	LeftJoin
	OuterJoin
)

// Merge joins two tables on equal key columns. Non-key columns present on
// both sides get the suffixes "_x" and "_y". Key columns come first, then the
// left columns, then the right columns; row order follows the left table, with
// unmatched right rows appended for an outer join.
func Merge(left, right *Table, on []string, how Join) (*Table, error) {
	if err := left.Require(on...); err != nil {
		return nil, err
	}
	if err := right.Require(on...); err != nil {
		return nil, err
	}
	isKey := make(map[string]bool, len(on))
	for _, c := range on {
		isKey[c] = true
	}
	leftCols := nonKey(left.columns, isKey)
	rightCols := nonKey(right.columns, isKey)
	inRight := make(map[string]bool, len(rightCols))
	for _, c := range rightCols {
		inRight[c] = true
	}
	inLeft := make(map[string]bool, len(leftCols))
	for _, c := range leftCols {
		inLeft[c] = true
	}

	columns := append([]string(nil), on...)
	for _, c := range leftCols {
		if inRight[c] {
			columns = append(columns, c+"_x")
			continue
		}
		columns = append(columns, c)
	}
	for _, c := range rightCols {
		if inLeft[c] {
			columns = append(columns, c+"_y")
			continue
		}
		columns = append(columns, c)
	}
	if _, err := indexColumns(columns); err != nil {
		return nil, err
	}

	byKey := make(map[string][]int, right.Len())
	var keyOrder []string
	for i := range right.rows {
		k := right.rowKey(i, on)
		if _, ok := byKey[k]; !ok {
			keyOrder = append(keyOrder, k)
		}
		byKey[k] = append(byKey[k], i)
	}
	matched := make(map[string]bool, len(byKey))

	b := NewBuilder(columns...)
	emit := func(li, ri int) {
		row := make([]Value, 0, len(columns))
		for _, c := range on {
			if li >= 0 {
				row = append(row, left.Get(li, c))
			} else {
				row = append(row, right.Get(ri, c))
			}
		}
		for _, c := range leftCols {
			if li >= 0 {
				row = append(row, left.Get(li, c))
			} else {
				row = append(row, Null())
			}
		}
		for _, c := range rightCols {
			if ri >= 0 {
				row = append(row, right.Get(ri, c))
			} else {
				row = append(row, Null())
			}
		}
		b.rows = append(b.rows, row)
	}

	for li := range left.rows {
		k := left.rowKey(li, on)
		matches := byKey[k]
		if len(matches) == 0 {
			if how != InnerJoin {
				emit(li, -1)
			}
			continue
		}
		matched[k] = true
		for _, ri := range matches {
			emit(li, ri)
		}
	}
	if how == OuterJoin {
		for _, k := range keyOrder {
			if matched[k] {
				continue
			}
			for _, ri := range byKey[k] {
				emit(-1, ri)
			}
		}
	}
	return b.Table(), nil
}

func nonKey(columns []string, isKey map[string]bool) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !isKey[c] {
			out = append(out, c)
		}
	}
	return out
}
