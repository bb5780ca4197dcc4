package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"flexmarket-report/internal/table"
)

// ServiceKind separates reserve products from dynamic response products.
type ServiceKind int

const (
	Reserve ServiceKind = iota + 1
	Response
)

// ClassifyService returns Reserve for products whose name holds P or N
// (positive and negative reserve) and Response for names holding D.
func ClassifyService(name string) (ServiceKind, error) {
	switch {
	case strings.ContainsAny(name, "PN"):
		return Reserve, nil
	case strings.Contains(name, "D"):
		return Response, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownService, name)
	}
}

// ResponseBand is the frequency band over which a response service ramps
// from 5% to full delivery.
type ResponseBand struct {
	Lower float64
	Upper float64
	// Low services deliver as frequency falls.
	Low bool
}

var responseBands = map[string]ResponseBand{
	"DRH": {Lower: 50.015, Upper: 50.2},
	"DMH": {Lower: 50.1, Upper: 50.2},
	"DCH": {Lower: 50.2, Upper: 50.5},
	"DRL": {Lower: 49.8, Upper: 49.985, Low: true},
	"DML": {Lower: 49.8, Upper: 49.9, Low: true},
	"DCL": {Lower: 49.5, Upper: 49.8, Low: true},
}

// BandOf returns the frequency band of a response service.
func BandOf(service string) (ResponseBand, error) {
	b, ok := responseBands[service]
	if !ok {
		return ResponseBand{}, fmt.Errorf("%w %q: no frequency band", ErrUnknownService, service)
	}
	return b, nil
}

// Delivery returns the share of contracted MW delivered at frequency f:
// 0.05 at the band edge nearest nominal, rising linearly to 1 at the far
// edge and 1 beyond it, 0 on the nominal side of the band.
func (b ResponseBand) Delivery(f float64) float64 {
	c := 0.95 / (b.Upper - b.Lower)
	if b.Low {
		switch {
		case f < b.Lower:
			return 1
		case f <= b.Upper:
			return 0.05 + c*(b.Upper-f)
		}
		return 0
	}
	switch {
	case f > b.Upper:
		return 1
	case f >= b.Lower:
		return c*f + (1 - c*b.Upper)
	}
	return 0
}

// Response energy columns.
const (
	EnergyDate    = "Date"
	EnergyEFA     = "EFA"
	EnergyService = "Service"
	EnergyMWh     = "MWh"
)

// ResponseEnergy integrates per-second frequency samples into the MWh a 1 MW
// contract of each service delivers per day and EFA block.
func ResponseEnergy(samples *table.Table, timeColumn, freqColumn string, services []string) (*table.Table, error) {
	if err := samples.Require(timeColumn, freqColumn); err != nil {
		return nil, err
	}
	bands := make([]ResponseBand, len(services))
	for i, s := range services {
		b, err := BandOf(s)
		if err != nil {
			return nil, err
		}
		bands[i] = b
	}

	type key struct {
		day     time.Time
		efa     int
		service string
	}
	sums := map[key]float64{}
	for i := 0; i < samples.Len(); i++ {
		ts, ok := samples.Get(i, timeColumn).Time()
		if !ok {
			continue
		}
		f, ok := samples.Get(i, freqColumn).Float()
		if !ok {
			continue
		}
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		efa := EFAForHour(ts.Hour())
		for j, s := range services {
			sums[key{day, efa, s}] += bands[j].Delivery(f) / 3600
		}
	}

	keys := make([]key, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if !ka.day.Equal(kb.day) {
			return ka.day.Before(kb.day)
		}
		if ka.efa != kb.efa {
			return ka.efa < kb.efa
		}
		return ka.service < kb.service
	})
	b := table.NewBuilder(EnergyDate, EnergyEFA, EnergyService, EnergyMWh)
	for _, k := range keys {
		b.Add(table.Time(k.day), table.Int(k.efa), table.Str(k.service), table.Num(sums[k]))
	}
	return b.Table(), nil
}
