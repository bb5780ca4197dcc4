package report

import (
	"sort"

	"flexmarket-report/internal/table"
)

// Spec aggregates one column into an output column named As (Column when empty).
type Spec struct {
	Column string
	Agg    Agg
	As     string
}

func (s Spec) name() string {
	if s.As != "" {
		return s.As
	}
	return s.Column
}

type group struct {
	keys []table.Value
	rows []int
}

// groupRows partitions rows by the by columns, dropping rows with a null key,
// and returns the groups in ascending key order.
func groupRows(t *table.Table, by []string) []*group {
	index := map[string]*group{}
	var groups []*group
	for i := 0; i < t.Len(); i++ {
		keys := make([]table.Value, len(by))
		key := ""
		skip := false
		for j, c := range by {
			v := t.Get(i, c)
			if v.IsNull() {
				skip = true
				break
			}
			keys[j] = v
			key += v.Key() + "\x1f"
		}
		if skip {
			continue
		}
		g, ok := index[key]
		if !ok {
			g = &group{keys: keys}
			index[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, i)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return compareKeys(groups[a].keys, groups[b].keys) < 0
	})
	return groups
}

func compareKeys(a, b []table.Value) int {
	for i := range a {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func collect(t *table.Table, rows []int, column string) []table.Value {
	out := make([]table.Value, len(rows))
	for i, r := range rows {
		out[i] = t.Get(r, column)
	}
	return out
}

// Aggregate groups t by the by columns and applies each spec per group.
// Groups come out in ascending key order; rows with a null key are dropped.
func Aggregate(t *table.Table, by []string, specs ...Spec) (*table.Table, error) {
	if err := t.Require(by...); err != nil {
		return nil, err
	}
	columns := append([]string(nil), by...)
	for _, s := range specs {
		if err := s.Agg.Validate(); err != nil {
			return nil, err
		}
		if err := t.Require(s.Column); err != nil {
			return nil, err
		}
		columns = append(columns, s.name())
	}
	if _, err := table.New(columns); err != nil {
		return nil, err
	}
	b := table.NewBuilder(columns...)
	for _, g := range groupRows(t, by) {
		row := append([]table.Value(nil), g.keys...)
		for _, s := range specs {
			row = append(row, s.Agg.Reduce(collect(t, g.rows, s.Column)))
		}
		b.Add(row...)
	}
	return b.Table(), nil
}

// CountDistinct counts the distinct non-null values of column.
func CountDistinct(t *table.Table, column string) int {
	return len(t.Unique(column))
}
