package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/table"
)

// query describes where a warehouse dataset lives.
type query struct {
	table   string
	orderBy string

	// dateColumn filters the range; empty for reference tables fetched whole.
	dateColumn string

	// upperPadDays widens the upper bound for tables keyed on delivery end.
	upperPadDays int
}

var queries = map[dataset.Name]query{
	dataset.MIP:        {table: "market_index_prices", dateColumn: "settlement_date", orderBy: "settlement_date, settlement_period"},
	dataset.BMU:        {table: "bm_units", orderBy: "bmu_id"},
	dataset.NGU:        {table: "ngu_units", orderBy: "ngu_id"},
	dataset.Capacity:   {table: "bm_unit_capacity", orderBy: "bmu_id, effective_date"},
	dataset.BOD:        {table: "bid_offer_data", dateColumn: "settlement_date", upperPadDays: 1, orderBy: "settlement_date, settlement_period, bmu_id"},
	dataset.DSP:        {table: "detailed_system_prices", dateColumn: "settlement_date", orderBy: "settlement_date, settlement_period, bmu_id"},
	dataset.DISBSAD:    {table: "balancing_services_adjustments", dateColumn: "settlement_date", orderBy: "settlement_date, settlement_period"},
	dataset.EAC:        {table: "eac_sell_orders", dateColumn: "delivery_start", orderBy: "delivery_start, unit_ngeso_id"},
	dataset.STOR:       {table: "stor_day_ahead_results", dateColumn: "delivery_start", upperPadDays: 1, orderBy: "delivery_start, unit_id"},
	dataset.SFFR:       {table: "sffr_auction_results", dateColumn: "delivery_start", upperPadDays: 1, orderBy: "delivery_start, unit_id"},
	dataset.Inertia:    {table: "system_inertia", dateColumn: "settlement_date", orderBy: "settlement_date, settlement_period"},
	dataset.Generation: {table: "generation_by_fuel", dateColumn: "settlement_date", orderBy: "settlement_date, settlement_period"},
	dataset.Demand:     {table: "demand_outturn", dateColumn: "settlement_date", orderBy: "settlement_date, settlement_period"},
}

// Source fetches warehouse datasets with one explicit-schema query each.
type Source struct {
	db *sql.DB
}

// NewSource constructs a warehouse source.
func NewSource(db *sql.DB) *Source {
	return &Source{db: db}
}

// Supports reports whether the warehouse serves a dataset.
func (s *Source) Supports(name dataset.Name) bool {
	_, ok := queries[name]
	return ok
}

// SQL renders the query of a dataset. Ranged queries take the inclusive
// lower date as $1 and the exclusive upper date as $2.
func SQL(d dataset.Descriptor) (string, error) {
	q, ok := queries[d.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s is not a warehouse dataset", dataset.ErrUnknownDataset, d.Name)
	}
	columns := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		columns[i] = f.Source
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString("\nFROM ")
	b.WriteString(q.table)
	if q.dateColumn != "" {
		fmt.Fprintf(&b, "\nWHERE %s >= $1 AND %s < $2", q.dateColumn, q.dateColumn)
	}
	if q.orderBy != "" {
		b.WriteString("\nORDER BY ")
		b.WriteString(q.orderBy)
	}
	return b.String(), nil
}

// Fetch runs the dataset query for rng. Reference tables ignore rng.
func (s *Source) Fetch(ctx context.Context, d dataset.Descriptor, rng dataset.Range) (*table.Table, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres source: nil db")
	}
	q, ok := queries[d.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a warehouse dataset", dataset.ErrUnknownDataset, d.Name)
	}
	stmt, err := SQL(d)
	if err != nil {
		return nil, err
	}
	var args []any
	if q.dateColumn != "" {
		args = append(args, dateArg(rng.From), dateArg(rng.To.AddDays(1+q.upperPadDays)))
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres source: query %s %s: %w", d.Name, rng, err)
	}
	defer rows.Close()

	got, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if err := checkSchema(d, got); err != nil {
		return nil, err
	}

	b := table.NewBuilder(d.Headers()...)
	raw := make([]any, len(got))
	ptrs := make([]any, len(got))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("postgres source: scan %s: %w", d.Name, err)
		}
		row := make([]table.Value, len(raw))
		for i, v := range raw {
			cell, err := toValue(v, d.Fields[i].Kind)
			if err != nil {
				return nil, fmt.Errorf("postgres source: %s column %s: %w", d.Name, d.Fields[i].Source, err)
			}
			row[i] = cell
		}
		b.Add(row...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres source: rows %s: %w", d.Name, err)
	}
	return b.Table(), nil
}

func dateArg(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func checkSchema(d dataset.Descriptor, got []string) error {
	if len(got) != len(d.Fields) {
		return fmt.Errorf("%w: %s returned %d columns, schema v%d has %d", dataset.ErrSchemaDrift, d.Name, len(got), d.SchemaVersion, len(d.Fields))
	}
	for i, f := range d.Fields {
		if !strings.EqualFold(got[i], f.Source) {
			return fmt.Errorf("%w: %s column %d is %q, schema v%d expects %q", dataset.ErrSchemaDrift, d.Name, i+1, got[i], d.SchemaVersion, f.Source)
		}
	}
	return nil
}

func toValue(v any, kind table.Kind) (table.Value, error) {
	switch x := v.(type) {
	case nil:
		return table.Null(), nil
	case time.Time:
		if kind == table.KindString {
			return table.Str(x.Format(time.RFC3339)), nil
		}
		return table.Time(x), nil
	case float64:
		return numberValue(x, kind), nil
	case float32:
		return numberValue(float64(x), kind), nil
	case int64:
		return numberValue(float64(x), kind), nil
	case int32:
		return numberValue(float64(x), kind), nil
	case int:
		return numberValue(float64(x), kind), nil
	case bool:
		if x {
			return table.Str("T"), nil
		}
		return table.Str("F"), nil
	case []byte:
		return table.Parse(string(x), kind)
	case string:
		return table.Parse(x, kind)
	default:
		return table.Parse(fmt.Sprint(x), kind)
	}
}

func numberValue(f float64, kind table.Kind) table.Value {
	if kind == table.KindString {
		return table.Str(table.Num(f).Text())
	}
	return table.Num(f)
}
