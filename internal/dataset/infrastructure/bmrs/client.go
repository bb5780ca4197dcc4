package bmrs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/observability/metrics"
	"flexmarket-report/internal/table"
)

// DefaultBaseURL is the public Elexon Insights API.
const DefaultBaseURL = "https://data.elexon.co.uk/bmrs/api/v1"

// DefaultWindowDays is the widest range requested in one call.
const DefaultWindowDays = 7

const (
	CodeRemit              = "remit"
	CodeDynamicRates       = "balancing/dynamic/rates"
	CodeFuelHH             = "datasets/FUELHH"
	CodePhysical           = "balancing/physical"
	CodeRenewableForecast  = "forecast/generation/wind-and-solar/day-ahead"
	CodeDemandForecastDA   = "forecast/demand/day-ahead/latest"
	defaultPhysicalDataset = "PN"
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	WindowDays        int
	RequestsPerSecond float64
	Timeout           time.Duration

	// Progress receives a per-window progress bar; nil disables it.
	Progress io.Writer
	Logger   zerolog.Logger
}

// Client is a minimal BMRS REST client.
type Client struct {
	baseURL    string
	windowDays int
	http       *resty.Client
	limiter    *rate.Limiter
	progress   io.Writer
	log        zerolog.Logger
}

// NewClient constructs a BMRS client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("bmrs: empty base url")
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		windowDays: opts.WindowDays,
		http:       resty.New().SetTimeout(opts.Timeout).SetHeader("Accept", "application/json"),
		limiter:    rate.NewLimiter(limit, 1),
		progress:   opts.Progress,
		log:        opts.Logger,
	}, nil
}

// Query selects one BMRS dataset request. Zero dates are omitted.
type Query struct {
	Code       string
	From       civil.Date
	To         civil.Date
	BMUnit     string
	MessageIDs []string

	// PhysicalDataset selects the balancing/physical notification type (default PN).
	PhysicalDataset string
}

func (q Query) hasFrom() bool { return q.From != civil.Date{} }
func (q Query) hasTo() bool   { return q.To != civil.Date{} }

// URL renders the request URL of a query.
func (c *Client) URL(q Query) (string, error) {
	code := strings.Trim(q.Code, "/")
	if code == "" {
		return "", errors.New("bmrs: empty dataset code")
	}
	params := url.Values{}
	switch code {
	case CodeRemit:
		if len(q.MessageIDs) == 0 {
			return "", errors.New("bmrs: remit needs message ids")
		}
		for _, id := range q.MessageIDs {
			params.Add("messageId", id)
		}
		params.Set("latestRevisionOnly", "true")
	case CodeDynamicRates:
		if q.BMUnit == "" || !q.hasTo() {
			return "", errors.New("bmrs: dynamic rates need a unit and a date")
		}
		params.Set("bmUnit", q.BMUnit)
		if q.hasFrom() {
			params.Set("snapshotAt", q.From.String())
			params.Set("until", q.To.String())
		} else {
			params.Set("snapshotAt", q.To.String())
		}
	case CodeFuelHH:
		params.Set("settlementDateFrom", q.From.String())
		params.Set("settlementDateTo", q.To.String())
	case CodePhysical:
		if q.BMUnit == "" {
			return "", errors.New("bmrs: physical data needs a unit")
		}
		ds := q.PhysicalDataset
		if ds == "" {
			ds = defaultPhysicalDataset
		}
		params.Set("bmUnit", q.BMUnit)
		params.Set("from", q.From.String())
		params.Set("to", q.To.String())
		params.Set("dataset", ds)
	case CodeRenewableForecast:
		params.Set("from", q.From.String())
		params.Set("to", q.To.String())
		params.Set("processType", "day ahead")
	default:
		if q.hasFrom() != q.hasTo() {
			return "", fmt.Errorf("bmrs: %s needs both dates or neither", code)
		}
		if q.hasFrom() {
			params.Set("from", q.From.String())
			params.Set("to", q.To.String())
		}
	}
	params.Set("format", "json")
	return c.baseURL + "/" + code + "?" + params.Encode(), nil
}

// Windows splits [from, to] into requests of at most n days. Long ranges use
// consecutive [f, f+n] windows while f+n <= to and a final window ending the
// day after to; short ranges are one window ending the day after to.
func Windows(from, to civil.Date, n int) []dataset.Range {
	if n <= 0 {
		n = DefaultWindowDays
	}
	var out []dataset.Range
	start := from
	if to.DaysSince(from) >= n {
		for end := start.AddDays(n); !to.Before(end); end = start.AddDays(n) {
			out = append(out, dataset.Range{From: start, To: end})
			start = start.AddDays(n)
		}
	}
	return append(out, dataset.Range{From: start, To: to.AddDays(1)})
}

// Gather requests every window of q's range, stacks the records, drops
// duplicate rows and renames columns to the standard headers. A query with
// no dates is one request.
func (c *Client) Gather(ctx context.Context, q Query) (*table.Table, error) {
	if !q.hasFrom() || !q.hasTo() {
		t, err := c.get(ctx, q)
		if err != nil {
			return nil, err
		}
		return rename(t), nil
	}
	windows := Windows(q.From, q.To, c.windowDays)
	var bar *progressbar.ProgressBar
	if c.progress != nil {
		bar = progressbar.NewOptions(len(windows),
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription(q.Code),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
		)
	}
	parts := make([]*table.Table, 0, len(windows))
	for _, w := range windows {
		wq := q
		wq.From, wq.To = w.From, w.To
		c.log.Debug().Str("code", q.Code).Stringer("window", w).Msg("bmrs request")
		t, err := c.get(ctx, wq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, t)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return rename(table.Concat(parts...).Distinct()), nil
}

func (c *Client) get(ctx context.Context, q Query) (*table.Table, error) {
	u, err := c.URL(q)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(u)
	if err != nil {
		metrics.ObserveBMRSRequest(q.Code, metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("bmrs: %s: %w", q.Code, err)
	}
	if resp.StatusCode() >= 300 {
		metrics.ObserveBMRSRequest(q.Code, metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("bmrs: %s: http %d", q.Code, resp.StatusCode())
	}
	metrics.ObserveBMRSRequest(q.Code, metrics.ResultSuccess, time.Since(start))
	return Records(resp.Body())
}

// Fetch serves the BMRS-backed datasets for the Loader.
func (c *Client) Fetch(ctx context.Context, d dataset.Descriptor, rng dataset.Range) (*table.Table, error) {
	switch d.Name {
	case dataset.RenewableForecastDA:
		t, err := c.Gather(ctx, Query{Code: CodeRenewableForecast, From: rng.From, To: rng.To})
		if err != nil {
			return nil, err
		}
		return project(t, dataset.ColStartTime, dataset.ColFuelType, dataset.ColMW), nil
	case dataset.DemandForecastDA:
		t, err := c.Gather(ctx, Query{Code: CodeDemandForecastDA, From: rng.From, To: rng.To})
		if err != nil {
			return nil, err
		}
		return project(t, dataset.ColStartTime, dataset.ColDate, dataset.ColSP,
			dataset.ColTransmissionDemand, dataset.ColNationalDemand), nil
	default:
		return nil, fmt.Errorf("%w: %s is not served by bmrs", dataset.ErrUnknownDataset, d.Name)
	}
}

// project returns exactly the listed columns, sorted by the first. Columns
// the response did not carry are filled with nulls, so an empty response
// still has the dataset's header.
func project(t *table.Table, columns ...string) *table.Table {
	out := t
	for _, c := range columns {
		if !out.Has(c) {
			out = out.WithColumn(c, func(table.Row) table.Value { return table.Null() })
		}
	}
	kept, err := out.Select(columns...)
	if err != nil {
		return table.Empty(columns...)
	}
	return kept.SortBy(table.Asc(columns[0]))
}
