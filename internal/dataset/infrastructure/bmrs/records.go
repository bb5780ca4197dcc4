package bmrs

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"flexmarket-report/internal/table"
)

// headers maps BMRS field names to the standard report headers.
var headers = map[string]string{
	"nationalGridBmUnit":       "NGU ID",
	"elexonBmUnit":             "BMU ID",
	"settlementDate":           "Date",
	"settlementPeriod":         "SP",
	"publishTime":              "Publish time",
	"bmUnit":                   "BMU ID",
	"fuelType":                 "Fuel type",
	"normalCapacity":           "Normal MW",
	"unavailableCapacity":      "Unavailable MW",
	"availableCapacity":        "Available MW",
	"assetId":                  "BMU ID",
	"eventStartTime":           "Start time",
	"eventEndTime":             "End time",
	"cause":                    "Issue",
	"unavailabilityType":       "Unavailability type",
	"timeFrom":                 "Time from",
	"timeTo":                   "Time to",
	"levelFrom":                "MW from",
	"levelTo":                  "MW to",
	"leadPartyName":            "Company",
	"startTime":                "Start time",
	"price":                    "Price",
	"volume":                   "Volume",
	"quantity":                 "MW",
	"psrType":                  "Fuel type",
	"transmissionSystemDemand": "Transmission demand (MW)",
	"nationalDemand":           "National demand (MW)",
}

// rename applies the standard header map. When two source fields map to the
// same header the first one in column order wins and the other is dropped.
func rename(t *table.Table) *table.Table {
	mapping := map[string]string{}
	taken := map[string]bool{}
	for _, c := range t.Columns() {
		if _, ok := headers[c]; !ok {
			taken[c] = true
		}
	}
	var drop []string
	for _, c := range t.Columns() {
		h, ok := headers[c]
		if !ok {
			continue
		}
		if taken[h] {
			drop = append(drop, c)
			continue
		}
		taken[h] = true
		mapping[c] = h
	}
	out := t.Drop(drop...)
	renamed, err := out.Rename(mapping)
	if err != nil {
		return out
	}
	return renamed
}

// Records decodes a BMRS response into a table. The records are the list
// under "data" when present, else a bare list, else the object itself.
// Nested objects are flattened into dotted column names.
func Records(body []byte) (*table.Table, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("bmrs: decode response: %w", err)
	}
	var items []any
	switch v := doc.(type) {
	case map[string]any:
		if data, ok := v["data"].([]any); ok {
			items = data
		} else {
			items = []any{v}
		}
	case []any:
		items = v
	case nil:
	default:
		return nil, fmt.Errorf("bmrs: unexpected response of type %T", doc)
	}

	var columns []string
	seen := map[string]bool{}
	rows := make([]map[string]table.Value, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			obj = map[string]any{"value": item}
		}
		flat := map[string]table.Value{}
		flatten("", obj, flat)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		rows = append(rows, flat)
	}

	b := table.NewBuilder(columns...)
	for _, r := range rows {
		b.AddMap(r)
	}
	return b.Table(), nil
}

func flatten(prefix string, obj map[string]any, out map[string]table.Value) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := v.(type) {
		case map[string]any:
			flatten(key, x, out)
		case nil:
			out[key] = table.Null()
		case float64:
			out[key] = table.Num(x)
		case bool:
			out[key] = table.Str(strconv.FormatBool(x))
		case string:
			if ts, ok := table.ParseTime(x); ok {
				out[key] = table.Time(ts)
				continue
			}
			out[key] = table.Str(x)
		default:
			raw, err := json.Marshal(x)
			if err != nil {
				out[key] = table.Str(fmt.Sprint(x))
				continue
			}
			out[key] = table.Str(string(raw))
		}
	}
}
