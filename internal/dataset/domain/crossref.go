package dataset

import (
	"fmt"

	"flexmarket-report/internal/table"
)

// Enrichment sets Column from a lookup of the Key column in Values.
type Enrichment struct {
	Column string
	Key    string
	Values map[string]table.Value
}

// Enrich applies enrichments in order. Keys absent from a map yield null.
func Enrich(t *table.Table, enrichments ...Enrichment) (*table.Table, error) {
	out := t
	for _, e := range enrichments {
		next, err := out.MapColumn(e.Column, e.Key, e.Values)
		if err != nil {
			return nil, fmt.Errorf("enrich %q by %q: %w", e.Column, e.Key, err)
		}
		out = next
	}
	return out, nil
}

// CrossReference holds the id, fuel type, company and capacity lookups built
// once per run from the reference datasets.
type CrossReference struct {
	BMUToNGU   map[string]table.Value
	NGUToBMU   map[string]table.Value
	BMUFuel    map[string]table.Value
	NGUFuel    map[string]table.Value
	UnitFuel   map[string]table.Value
	BMUCompany map[string]table.Value
	NGUCompany map[string]table.Value

	// BMUCapacity and NGUCapacity hold generation capacity (GC) in MW.
	BMUCapacity map[string]table.Value
	NGUCapacity map[string]table.Value
}

// BuildCrossReference derives the lookups from BMU, NGU and capacity
// reference tables. When both tables know an NGU id the BMU table wins.
// capacity may be nil.
func BuildCrossReference(bmu, ngu, capacity *table.Table) (CrossReference, error) {
	var x CrossReference
	var err error
	if x.BMUToNGU, err = bmu.Lookup(ColBMUID, ColNGUID); err != nil {
		return x, fmt.Errorf("bmu ngu ids: %w", err)
	}
	if x.NGUToBMU, err = bmu.Lookup(ColNGUID, ColBMUID); err != nil {
		return x, fmt.Errorf("ngu bmu ids: %w", err)
	}
	if x.BMUFuel, err = bmu.Lookup(ColBMUID, ColFuelType); err != nil {
		return x, fmt.Errorf("bmu fuel types: %w", err)
	}
	if x.UnitFuel, err = bmu.Lookup(ColNGUID, ColFuelType); err != nil {
		return x, fmt.Errorf("unit fuel types: %w", err)
	}
	if x.BMUCompany, err = bmu.Lookup(ColBMUID, ColCompany); err != nil {
		return x, fmt.Errorf("bmu companies: %w", err)
	}
	nguFuel, err := ngu.Lookup(ColNGUID, ColFuelType)
	if err != nil {
		return x, fmt.Errorf("ngu fuel types: %w", err)
	}
	nguCompany, err := ngu.Lookup(ColNGUID, ColCompany)
	if err != nil {
		return x, fmt.Errorf("ngu companies: %w", err)
	}
	bmuNGUCompany, err := bmu.Lookup(ColNGUID, ColCompany)
	if err != nil {
		return x, fmt.Errorf("bmu ngu companies: %w", err)
	}
	x.NGUFuel = overlay(nguFuel, x.UnitFuel)
	x.NGUCompany = overlay(nguCompany, bmuNGUCompany)

	x.BMUCapacity = map[string]table.Value{}
	x.NGUCapacity = map[string]table.Value{}
	if capacity != nil {
		if x.BMUCapacity, err = capacity.Lookup(ColBMUID, ColGC); err != nil {
			return x, fmt.Errorf("bmu capacity: %w", err)
		}
		for id, gc := range x.BMUCapacity {
			if unit, ok := x.BMUToNGU[id]; ok && !unit.IsNull() {
				x.NGUCapacity[unit.Text()] = gc
			}
		}
	}
	return x, nil
}

func overlay(base, top map[string]table.Value) map[string]table.Value {
	out := make(map[string]table.Value, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}

// NGUByBMU sets NGU ID from BMU ID.
func (x CrossReference) NGUByBMU() Enrichment {
	return Enrichment{Column: ColNGUID, Key: ColBMUID, Values: x.BMUToNGU}
}

// BMUByNGU sets BMU ID from NGU ID.
func (x CrossReference) BMUByNGU() Enrichment {
	return Enrichment{Column: ColBMUID, Key: ColNGUID, Values: x.NGUToBMU}
}

// FuelByBMU sets Fuel type from BMU ID.
func (x CrossReference) FuelByBMU() Enrichment {
	return Enrichment{Column: ColFuelType, Key: ColBMUID, Values: x.BMUFuel}
}

// FuelByNGU sets Fuel type from NGU ID using the merged NGU lookup.
func (x CrossReference) FuelByNGU() Enrichment {
	return Enrichment{Column: ColFuelType, Key: ColNGUID, Values: x.NGUFuel}
}

// FuelByUnit sets Fuel type from NGU ID using BMU metadata only.
func (x CrossReference) FuelByUnit() Enrichment {
	return Enrichment{Column: ColFuelType, Key: ColNGUID, Values: x.UnitFuel}
}

// CompanyByBMU sets Company from BMU ID.
func (x CrossReference) CompanyByBMU() Enrichment {
	return Enrichment{Column: ColCompany, Key: ColBMUID, Values: x.BMUCompany}
}

// CompanyByNGU sets Company from NGU ID.
func (x CrossReference) CompanyByNGU() Enrichment {
	return Enrichment{Column: ColCompany, Key: ColNGUID, Values: x.NGUCompany}
}
