package dataset

import (
	"fmt"

	"flexmarket-report/internal/table"
)

// Source names where a dataset is fetched from.
type Source string

const (
	SourceWarehouse Source = "warehouse"
	SourceBMRS      Source = "bmrs"
)

// Field is one column of a dataset schema: the source column name, the
// header it is published under and its kind.
type Field struct {
	Source string
	Header string
	Kind   table.Kind
}

// Descriptor is the immutable definition of a dataset.
type Descriptor struct {
	Name          Name
	Source        Source
	CacheFile     string
	SchemaVersion int

	// DateColumns drive coverage; empty means the dataset has no date dimension.
	DateColumns []string

	// Reference datasets are refetched in full once their cache file is stale.
	Reference bool

	// TrailingDays extends the requested range past date_to, for sources
	// filtered on a delivery end date.
	TrailingDays int

	// Fields is the versioned output schema. BMRS datasets carry none; their
	// columns follow the API response.
	Fields []Field
}

// Headers returns the schema headers in order.
func (d Descriptor) Headers() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Header
	}
	return out
}

// KindOf returns the schema kind of a header, or KindNull when unknown.
func (d Descriptor) KindOf(header string) table.Kind {
	for _, f := range d.Fields {
		if f.Header == header {
			return f.Kind
		}
	}
	for _, c := range d.DateColumns {
		if c == header {
			return table.KindTime
		}
	}
	return table.KindNull
}

// Validate checks the date-column specification against the schema.
func (d Descriptor) Validate() error {
	seen := make(map[string]bool, len(d.DateColumns))
	for _, c := range d.DateColumns {
		if c == "" {
			return fmt.Errorf("%w: %s has an empty date column", ErrInvalidDateColumn, d.Name)
		}
		if seen[c] {
			return fmt.Errorf("%w: %s lists %q twice", ErrInvalidDateColumn, d.Name, c)
		}
		seen[c] = true
		if len(d.Fields) == 0 {
			continue
		}
		kind := table.KindNull
		for _, f := range d.Fields {
			if f.Header == c {
				kind = f.Kind
			}
		}
		if kind != table.KindTime {
			return fmt.Errorf("%w: %s column %q is not a time column of the schema", ErrInvalidDateColumn, d.Name, c)
		}
	}
	if d.CacheFile == "" {
		return fmt.Errorf("%w: %s has no cache file", ErrInvalidDateColumn, d.Name)
	}
	return nil
}

// Describe returns the descriptor of a dataset.
func Describe(name Name) (Descriptor, error) {
	d, ok := catalog[name]
	if !ok {
		return Descriptor{}, unknownDataset(string(name))
	}
	return d, nil
}

func str(source, header string) Field {
	return Field{Source: source, Header: header, Kind: table.KindString}
}

func num(source, header string) Field {
	return Field{Source: source, Header: header, Kind: table.KindNumber}
}

func when(source, header string) Field {
	return Field{Source: source, Header: header, Kind: table.KindTime}
}

var catalog = map[Name]Descriptor{
	MIP: {
		Name: MIP, Source: SourceWarehouse, CacheFile: "System prices data.csv",
		DateColumns: []string{ColDate}, SchemaVersion: 1,
		Fields: []Field{
			when("settlement_date", ColDate),
			num("settlement_period", ColSP),
			num("price", ColMIPPrice),
			str("data_provider", ColDescription),
		},
	},
	BMU: {
		Name: BMU, Source: SourceWarehouse, CacheFile: "BMU Info.csv", Reference: true, SchemaVersion: 1,
		Fields: []Field{
			str("bmu_id", ColBMUID),
			str("ngu_id", ColNGUID),
			str("lead_party_name", ColCompany),
			str("gsp_group", "GSP Group"),
			str("fuel_type", ColFuelType),
			num("fuel_type_id", "Fuel type ID"),
		},
	},
	NGU: {
		Name: NGU, Source: SourceWarehouse, CacheFile: "NGU Info.csv", Reference: true, SchemaVersion: 1,
		Fields: []Field{
			str("ngu_id", ColNGUID),
			str("company_name", ColCompany),
			str("bm_nbm", ColBMNBM),
			str("fuel_type", ColFuelType),
		},
	},
	Capacity: {
		Name: Capacity, Source: SourceWarehouse, CacheFile: "BMU Capacity data.csv", Reference: true, SchemaVersion: 1,
		Fields: []Field{
			str("bmu_id", ColBMUID),
			when("effective_date", ColDate),
			num("generation_capacity", ColGC),
			num("demand_capacity", ColDC),
			str("ngu_id", ColNGUID),
		},
	},
	BOD: {
		Name: BOD, Source: SourceWarehouse, CacheFile: "BOD data.csv",
		DateColumns: []string{ColDate}, SchemaVersion: 1,
		Fields: []Field{
			when("settlement_date", ColDate),
			num("settlement_period", ColSP),
			when("time_from", "Time from"),
			when("time_to", "Time to"),
			str("bmu_id", ColBMUID),
			str("ngu_id", ColNGUID),
			str("fuel_type", ColFuelType),
			str("company_name", ColCompany),
			num("level_from", "MW from"),
			num("level_to", "MW to"),
			num("pair_id", ColPairID),
			num("bid", "Bid price"),
			num("offer", "Offer price"),
		},
	},
	DSP: {
		Name: DSP, Source: SourceWarehouse, CacheFile: "All DSP data.csv",
		DateColumns: []string{ColDate}, SchemaVersion: 1,
		Fields: []Field{
			when("settlement_date", ColDate),
			num("settlement_period", ColSP),
			str("bmu_id", ColBMUID),
			num("bid_offer_pair_id", ColPairID),
			str("cadl_flag", ColCADLFlag),
			str("so_flag", ColSOFlag),
			str("stor_flag", ColSTORFlag),
			num("price", ColPrice),
			num("volume", ColVolume),
		},
	},
	DISBSAD: {
		Name: DISBSAD, Source: SourceWarehouse, CacheFile: "All DISBSAD data.csv",
		DateColumns: []string{ColDate}, SchemaVersion: 1,
		Fields: []Field{
			when("settlement_date", ColDate),
			num("settlement_period", ColSP),
			str("action_id", "ID"),
			str("elexon_asset_id", ColNGUID),
			str("stor_provider_flag", ColSTORFlag),
			str("elexon_party_id", "Company ID"),
			num("cost", ColCost),
			num("volume", ColVolume),
			num("price", ColPrice),
			str("so_flag", ColSOFlag),
			str("tendered_status", "Tendered status"),
			str("service_type", ColServiceType),
			when("start_time", ColStartTime),
		},
	},
	EAC: {
		Name: EAC, Source: SourceWarehouse, CacheFile: "EAC Sell Order data.csv",
		DateColumns: []string{ColStartTime}, TrailingDays: 1, SchemaVersion: 1,
		Fields: []Field{
			str("unit_ngeso_id", ColNGUID),
			str("basket_id", "Basket ID"),
			str("service_type", ColServiceType),
			when("delivery_start", ColStartTime),
			when("delivery_end", ColEndTime),
			str("order_type", ColOrderType),
			str("auction_product", ColService),
			num("volume", ColEACVolume),
			num("price_limit", ColEACSubmittedPrice),
			str("looped_basket_id", "Looped basket ID"),
			num("executed_volume", ColEACExecutedVolume),
			num("clearing_price", ColEACClearingPrice),
			str("company_name", ColCompany),
		},
	},
	STOR: {
		Name: STOR, Source: SourceWarehouse, CacheFile: "STOR data.csv",
		DateColumns: []string{ColStartTime}, SchemaVersion: 1,
		Fields: []Field{
			when("delivery_start", ColStartTime),
			when("delivery_end", ColEndTime),
			str("unit_id", ColNGUID),
			str("company_name", ColCompany),
			str("bm_nbm", ColBMNBM),
			str("fuel_type", ColFuelType),
			num("submitted_mw", ColSubmittedMW),
			num("accepted_mw", ColAcceptedMW),
			num("availability_price", ColAvailabilityPrice),
			num("clearing_price", ColClearingPrice),
			str("status", ColStatus),
		},
	},
	SFFR: {
		Name: SFFR, Source: SourceWarehouse, CacheFile: "SFFR data.csv",
		DateColumns: []string{ColStartTime}, SchemaVersion: 1,
		Fields: []Field{
			when("delivery_start", ColStartTime),
			str("unit_id", ColNGUID),
			str("company_name", ColCompany),
			str("fuel_type", ColFuelType),
			num("efa", ColEFA),
			num("submitted_mw", ColSubmittedMW),
			num("accepted_mw", ColAcceptedMW),
			num("submitted_price", ColSubmittedPrice),
			num("clearing_price", ColClearingPrice),
			str("status", ColStatus),
		},
	},
	Inertia: {
		Name: Inertia, Source: SourceWarehouse, CacheFile: "Inertia data.csv",
		DateColumns: []string{ColDate}, SchemaVersion: 1,
		Fields: []Field{
			when("settlement_date", ColDate),
			num("settlement_period", ColSP),
			num("outturn_inertia", ColOutturn),
			num("market_provided_inertia", ColMarketInertia),
		},
	},
	Generation: {
		Name: Generation, Source: SourceWarehouse, CacheFile: "Generation data.csv",
		DateColumns: []string{ColDate}, SchemaVersion: 1,
		Fields: []Field{
			when("settlement_date", ColDate),
			num("settlement_period", ColSP),
			str("fuel_type", ColFuelType),
			num("generation", ColMW),
		},
	},
	Demand: {
		Name: Demand, Source: SourceWarehouse, CacheFile: "Demand data.csv",
		DateColumns: []string{ColDate}, SchemaVersion: 1,
		Fields: []Field{
			when("settlement_date", ColDate),
			num("settlement_period", ColSP),
			str("demand_type", ColDemandType),
			num("demand", ColMW),
		},
	},
	RenewableForecastDA: {
		Name: RenewableForecastDA, Source: SourceBMRS, CacheFile: "DA renewable forecast.csv",
		DateColumns: []string{ColStartTime},
	},
	DemandForecastDA: {
		Name: DemandForecastDA, Source: SourceBMRS, CacheFile: "DA demand forecast.csv",
		DateColumns: []string{ColStartTime},
	},
}
