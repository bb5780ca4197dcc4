package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Name identifies a dataset.
type Name string

const (
	MIP                 Name = "MIP_data"
	BMU                 Name = "BMU_data"
	NGU                 Name = "NGU_data"
	Capacity            Name = "Capacity_data"
	BOD                 Name = "BOD_data"
	DSP                 Name = "DSP_data"
	DISBSAD             Name = "DISBSAD_data"
	EAC                 Name = "EAC_data"
	STOR                Name = "STOR_data"
	SFFR                Name = "SFFR_data"
	Inertia             Name = "Inertia_data"
	Generation          Name = "Generation_data"
	Demand              Name = "Demand_data"
	RenewableForecastDA Name = "DA_renewable_forecast"
	DemandForecastDA    Name = "DA_demand_forecast"
)

// Names returns every catalogued dataset name in sorted order.
func Names() []Name {
	out := make([]Name, 0, len(catalog))
	for name := range catalog {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseName validates a dataset name. The error lists every valid name.
func ParseName(s string) (Name, error) {
	name := Name(s)
	if _, ok := catalog[name]; !ok {
		return "", unknownDataset(s)
	}
	return name, nil
}

func unknownDataset(s string) error {
	valid := make([]string, 0, len(catalog))
	for _, n := range Names() {
		valid = append(valid, string(n))
	}
	return fmt.Errorf("%w %q: choose one of %s", ErrUnknownDataset, s, strings.Join(valid, ", "))
}
