package report

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"flexmarket-report/internal/table"
)

// Agg names an aggregation function.
type Agg string

const (
	Sum   Agg = "sum"
	Mean  Agg = "mean"
	Count Agg = "count"
	Max   Agg = "max"
	Min   Agg = "min"
	Std   Agg = "std"
)

var aggs = []Agg{Sum, Mean, Count, Max, Min, Std}

// ParseAgg validates an aggregation name. The error names the valid options.
func ParseAgg(s string) (Agg, error) {
	a := Agg(strings.ToLower(strings.TrimSpace(s)))
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}

// Validate rejects unknown aggregations.
func (a Agg) Validate() error {
	for _, known := range aggs {
		if a == known {
			return nil
		}
	}
	valid := make([]string, len(aggs))
	for i, known := range aggs {
		valid[i] = string(known)
	}
	return fmt.Errorf("%w %q: choose one of %s", ErrUnsupportedAgg, string(a), strings.Join(valid, ", "))
}

// Reduce aggregates values, skipping nulls. Count counts non-null values of
// any kind; sum of no numbers is 0; mean, max and min of nothing are null;
// std is the sample standard deviation and needs two values.
func (a Agg) Reduce(values []table.Value) table.Value {
	switch a {
	case Count:
		n := 0
		for _, v := range values {
			if !v.IsNull() {
				n++
			}
		}
		return table.Int(n)
	case Max, Min:
		var best table.Value
		for _, v := range values {
			if v.IsNull() {
				continue
			}
			if best.IsNull() {
				best = v
				continue
			}
			c := v.Compare(best)
			if (a == Max && c > 0) || (a == Min && c < 0) {
				best = v
			}
		}
		return best
	}

	nums := present(values)
	switch a {
	case Sum:
		return table.Num(floats.Sum(nums))
	case Mean:
		if len(nums) == 0 {
			return table.Null()
		}
		return table.Num(stat.Mean(nums, nil))
	case Std:
		if len(nums) < 2 {
			return table.Null()
		}
		return table.Num(stat.StdDev(nums, nil))
	default:
		return table.Null()
	}
}

func present(values []table.Value) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.Float(); ok && !v.IsNull() {
			out = append(out, f)
		}
	}
	return out
}
