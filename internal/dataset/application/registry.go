package application

import (
	"context"
	"fmt"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/table"
)

// Fetcher retrieves a dataset range from a remote source.
type Fetcher interface {
	Fetch(ctx context.Context, d dataset.Descriptor, rng dataset.Range) (*table.Table, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, d dataset.Descriptor, rng dataset.Range) (*table.Table, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, d dataset.Descriptor, rng dataset.Range) (*table.Table, error) {
	return f(ctx, d, rng)
}

// Registry maps each dataset name to the fetcher that serves it.
type Registry map[dataset.Name]Fetcher

// NewRegistry routes every known dataset to the fetcher of its source.
// A nil fetcher leaves its datasets unregistered.
func NewRegistry(warehouse, bmrs Fetcher) Registry {
	r := Registry{}
	for _, name := range dataset.Names() {
		d, err := dataset.Describe(name)
		if err != nil {
			continue
		}
		switch d.Source {
		case dataset.SourceWarehouse:
			if warehouse != nil {
				r[name] = warehouse
			}
		case dataset.SourceBMRS:
			if bmrs != nil {
				r[name] = bmrs
			}
		}
	}
	return r
}

// Lookup returns the fetcher of a dataset.
func (r Registry) Lookup(name dataset.Name) (Fetcher, error) {
	f, ok := r[name]
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: no source registered for %s", dataset.ErrUnknownDataset, name)
	}
	return f, nil
}
