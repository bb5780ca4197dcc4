package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/observability/metrics"
	"flexmarket-report/internal/table"
)

// Loader returns dataset tables covering a range.
type Loader interface {
	Load(ctx context.Context, name dataset.Name, rng dataset.Range, enrich ...dataset.Enrichment) (*table.Table, error)
	CrossReference(ctx context.Context) (dataset.CrossReference, error)
}

// FrequencySource reads system frequency samples (columns dtm and f) within rng.
type FrequencySource func(path string, rng dataset.Range) (*table.Table, error)

// DatasetInfo describes a dataset as loaded during a run.
type DatasetInfo struct {
	Name dataset.Name
	Rows int
	// First and Last bound the first date column, empty when it has no values.
	First string
	Last  string
}

// SectionResult describes one built section.
type SectionResult struct {
	Name     string
	Tables   int
	Charts   int
	Duration time.Duration
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Period   Period
	Started  time.Time
	Finished time.Time
	Datasets []DatasetInfo
	Sections []SectionResult
}

type sectionFunc func(ctx context.Context, e *env) (Output, error)

var sections = map[string]sectionFunc{
	SectionFundamentals: buildFundamentals,
	SectionBalancing:    buildBalancing,
	SectionDISBSAD:      buildDISBSAD,
	SectionEAC:          buildEAC,
	SectionSTOR:         buildSTOR,
	SectionSFFR:         buildSFFR,
	SectionRevenue:      buildRevenue,
}

// Runner builds the enabled report sections and writes them to a sink.
type Runner struct {
	run       Run
	loader    Loader
	sink      Sink
	frequency FrequencySource
	log       zerolog.Logger
	now       func() time.Time
}

// NewRunner wires a run. A nil sink discards output; a nil frequency source
// skips the response energy tables.
func NewRunner(run Run, loader Loader, sink Sink, frequency FrequencySource, logger zerolog.Logger) (*Runner, error) {
	if loader == nil {
		return nil, errors.New("report runner: nil loader")
	}
	if sink == nil || !run.WriteOutput {
		sink = Discard{}
	}
	return &Runner{
		run:       run,
		loader:    loader,
		sink:      sink,
		frequency: frequency,
		log:       logger.With().Str("run_id", run.ID).Logger(),
		now:       time.Now,
	}, nil
}

// Run builds every enabled section in order. The first failing section
// aborts the run.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: r.run.ID, Period: r.run.Period, Started: r.now()}
	r.log.Info().Stringer("period", r.run.Period).Strs("sections", r.run.EnabledSections()).Msg("report run started")

	xref, err := r.loader.CrossReference(ctx)
	if err != nil {
		return summary, fmt.Errorf("cross reference: %w", err)
	}
	e := &env{
		run:       r.run,
		loader:    r.loader,
		xref:      xref,
		frequency: r.frequency,
		log:       r.log,
		loaded:    map[dataset.Name]DatasetInfo{},
	}

	for _, name := range r.run.EnabledSections() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log := r.log.With().Str("section", name).Logger()
		log.Info().Msg("section started")
		start := time.Now()
		out, err := sections[name](ctx, e.withLog(log))
		if err == nil {
			out.Section = name
			err = r.sink.Write(ctx, out)
		}
		elapsed := time.Since(start)
		if err != nil {
			metrics.ObserveSection(name, metrics.ResultError, elapsed)
			log.Error().Err(err).Msg("section failed")
			return summary, fmt.Errorf("section %s: %w", name, err)
		}
		metrics.ObserveSection(name, metrics.ResultSuccess, elapsed)
		log.Info().Int("tables", out.Tables()).Int("charts", len(out.Charts)).Dur("elapsed", elapsed).Msg("section finished")
		summary.Sections = append(summary.Sections, SectionResult{Name: name, Tables: out.Tables(), Charts: len(out.Charts), Duration: elapsed})
	}

	summary.Datasets = e.datasets()
	summary.Finished = r.now()
	return summary, nil
}

// env is what sections see of the run.
type env struct {
	run       Run
	loader    Loader
	xref      dataset.CrossReference
	frequency FrequencySource
	log       zerolog.Logger
	loaded    map[dataset.Name]DatasetInfo
}

func (e *env) withLog(log zerolog.Logger) *env {
	c := *e
	c.log = log
	return &c
}

// load loads a dataset and records it for the run summary.
func (e *env) load(ctx context.Context, name dataset.Name, rng dataset.Range, enrich ...dataset.Enrichment) (*table.Table, error) {
	t, err := e.loader.Load(ctx, name, rng, enrich...)
	if err != nil {
		return nil, err
	}
	info := DatasetInfo{Name: name, Rows: t.Len()}
	if d, err := dataset.Describe(name); err == nil && len(d.DateColumns) > 0 {
		if lo, hi, ok := t.Range(d.DateColumns[0]); ok {
			info.First, info.Last = lo.Text(), hi.Text()
		}
	}
	e.loaded[name] = info
	return t, nil
}

func (e *env) datasets() []DatasetInfo {
	out := make([]DatasetInfo, 0, len(e.loaded))
	for _, info := range e.loaded {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
