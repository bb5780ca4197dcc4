package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rickb777/period"
	"github.com/rs/zerolog"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/observability/metrics"
	"flexmarket-report/internal/table"
)

// DefaultReferenceMaxAge is how long reference metadata is served from cache.
var DefaultReferenceMaxAge = period.MustParse("P5D")

// DefaultCoverageTolerance is how far the cached max date may trail date_to
// before the tail is refetched.
const DefaultCoverageTolerance = 2 * time.Hour

// Cache persists whole dataset tables between runs.
type Cache interface {
	Read(d dataset.Descriptor) (*table.Table, bool, error)
	Write(d dataset.Descriptor, t *table.Table) error
	ModTime(d dataset.Descriptor) (time.Time, bool, error)
}

// Options configures a Loader.
type Options struct {
	Rules             dataset.Rules
	ReferenceMaxAge   period.Period
	CoverageTolerance time.Duration
	Now               func() time.Time
}

// Loader returns dataset tables covering a requested range, fetching only
// what the cache lacks.
type Loader struct {
	cache   Cache
	sources Registry
	opts    Options
	log     zerolog.Logger
}

// NewLoader constructs a loader.
func NewLoader(cache Cache, sources Registry, opts Options, logger zerolog.Logger) (*Loader, error) {
	if cache == nil {
		return nil, errors.New("dataset loader: nil cache")
	}
	if opts.Rules == (dataset.Rules{}) {
		opts.Rules = dataset.DefaultRules()
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	if opts.ReferenceMaxAge.IsZero() {
		opts.ReferenceMaxAge = DefaultReferenceMaxAge
	}
	if opts.CoverageTolerance <= 0 {
		opts.CoverageTolerance = DefaultCoverageTolerance
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Loader{cache: cache, sources: sources, opts: opts, log: logger}, nil
}

// LoadNamed resolves a dataset name and loads it. Unknown names fail before
// any cache or source access.
func (l *Loader) LoadNamed(ctx context.Context, name string, rng dataset.Range, enrich ...dataset.Enrichment) (*table.Table, error) {
	n, err := dataset.ParseName(name)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, n, rng, enrich...)
}

// Load returns the dataset covering rng, with derived fields and the given
// enrichments applied. The result may hold more than rng since caches are
// never pruned. The cache is rewritten only when something was fetched.
func (l *Loader) Load(ctx context.Context, name dataset.Name, rng dataset.Range, enrich ...dataset.Enrichment) (*table.Table, error) {
	start := time.Now()
	fail := func(err error) (*table.Table, error) {
		metrics.ObserveDatasetLoad(string(name), metrics.ResultError, time.Since(start))
		return nil, err
	}
	d, err := dataset.Describe(name)
	if err != nil {
		return fail(err)
	}
	if err := d.Validate(); err != nil {
		return fail(err)
	}
	if !d.Reference {
		if _, err := dataset.NewRange(rng.From, rng.To); err != nil {
			return fail(err)
		}
	}
	log := l.log.With().Str("dataset", string(name)).Stringer("range", rng).Logger()

	data, fetched, err := l.resolve(ctx, d, rng, log)
	if err != nil {
		return fail(err)
	}

	derived, err := dataset.Derive(name, data, l.opts.Rules)
	if err != nil {
		return fail(err)
	}
	enriched, err := dataset.Enrich(derived, enrich...)
	if err != nil {
		return fail(err)
	}

	result := metrics.LoadResultCached
	if fetched {
		result = metrics.LoadResultFetched
		if err := l.cache.Write(d, enriched); err != nil {
			return fail(err)
		}
		log.Info().Int("rows", enriched.Len()).Str("file", d.CacheFile).Msg("dataset cache exported")
	}
	metrics.ObserveDatasetLoad(string(name), result, time.Since(start))
	return enriched, nil
}

// resolve returns the raw table and whether any fetch happened.
func (l *Loader) resolve(ctx context.Context, d dataset.Descriptor, rng dataset.Range, log zerolog.Logger) (*table.Table, bool, error) {
	cached, ok, err := l.cache.Read(d)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		log.Info().Msg("no cache file, fetching full range")
		t, err := l.fetch(ctx, d, rng.Extend(d.TrailingDays))
		return t, err == nil, err
	}

	if d.Reference {
		stale, err := l.stale(d)
		if err != nil {
			return nil, false, err
		}
		if !stale {
			log.Debug().Msg("reference cache is fresh")
			return cached, false, nil
		}
		log.Info().Str("max_age", l.opts.ReferenceMaxAge.String()).Msg("reference cache is stale, refetching")
		t, err := l.fetch(ctx, d, rng)
		return t, err == nil, err
	}

	if len(d.DateColumns) == 0 {
		return cached, false, nil
	}
	if !cached.Has(d.DateColumns...) {
		log.Warn().Strs("date_columns", d.DateColumns).Msg("cache file lacks its date columns, fetching full range")
		t, err := l.fetch(ctx, d, rng.Extend(d.TrailingDays))
		return t, err == nil, err
	}
	cov, err := dataset.CoverageOf(cached, d.DateColumns)
	if err != nil {
		return nil, false, fmt.Errorf("%s cache: %w", d.Name, err)
	}
	gaps := cov.Gaps(rng.Extend(d.TrailingDays), l.opts.CoverageTolerance)
	if len(gaps) == 0 {
		log.Debug().Msg("cache covers range")
		return cached, false, nil
	}

	parts := []*table.Table{cached}
	for _, g := range gaps {
		log.Info().Stringer("gap", g.Range).Bool("prepend", g.Prepend).Msg("extending cache")
		t, err := l.fetch(ctx, d, g.Range)
		if err != nil {
			return nil, false, err
		}
		if g.Prepend {
			parts = append([]*table.Table{t}, parts...)
			continue
		}
		parts = append(parts, t)
	}
	return table.Concat(parts...), true, nil
}

func (l *Loader) fetch(ctx context.Context, d dataset.Descriptor, rng dataset.Range) (*table.Table, error) {
	src, err := l.sources.Lookup(d.Name)
	if err != nil {
		return nil, err
	}
	t, err := src.Fetch(ctx, d, rng)
	if err != nil {
		metrics.ObserveDatasetFetch(string(d.Name), metrics.ResultError, 0)
		return nil, fmt.Errorf("fetch %s %s: %w", d.Name, rng, err)
	}
	metrics.ObserveDatasetFetch(string(d.Name), metrics.ResultSuccess, t.Len())
	return t, nil
}

func (l *Loader) stale(d dataset.Descriptor) (bool, error) {
	mod, ok, err := l.cache.ModTime(d)
	if err != nil || !ok {
		return true, err
	}
	expiry, _ := l.opts.ReferenceMaxAge.AddTo(mod)
	return !l.opts.Now().Before(expiry), nil
}

// CrossReference loads the reference datasets and builds the lookup maps.
func (l *Loader) CrossReference(ctx context.Context) (dataset.CrossReference, error) {
	bmu, err := l.Load(ctx, dataset.BMU, dataset.Range{})
	if err != nil {
		return dataset.CrossReference{}, err
	}
	ngu, err := l.Load(ctx, dataset.NGU, dataset.Range{})
	if err != nil {
		return dataset.CrossReference{}, err
	}
	capacity, err := l.Load(ctx, dataset.Capacity, dataset.Range{})
	if err != nil {
		return dataset.CrossReference{}, err
	}
	return dataset.BuildCrossReference(bmu, ngu, capacity)
}
