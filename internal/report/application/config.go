package application

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/rickb777/period"
	"gopkg.in/yaml.v3"

	dataset "flexmarket-report/internal/dataset/domain"
)

// Section names, in run order.
const (
	SectionFundamentals = "fundamentals"
	SectionBalancing    = "balancing"
	SectionDISBSAD      = "disbsad"
	SectionEAC          = "eac"
	SectionSTOR         = "stor"
	SectionSFFR         = "sffr"
	SectionRevenue      = "revenue"
)

// SectionOrder lists every section in the order a run builds them.
var SectionOrder = []string{
	SectionFundamentals,
	SectionBalancing,
	SectionDISBSAD,
	SectionEAC,
	SectionSTOR,
	SectionSFFR,
	SectionRevenue,
}

// Defaults for fields the run file may omit.
const (
	DefaultWorkbook       = "Flexibility Market Report.xlsx"
	DefaultCacheDir       = "data"
	DefaultBalancingFrom  = "2023-11-01"
	DefaultInertiaFrom    = "2023-01-01"
	DefaultBMRSBaseURL    = "https://data.elexon.co.uk/bmrs/api/v1"
	DefaultBMRSWindowDays = 7
)

// HistoryConfig sets how far back the long-history sections load data.
type HistoryConfig struct {
	BalancingFrom string `yaml:"balancing_from"`
	InertiaFrom   string `yaml:"inertia_from"`
}

// RulesConfig selects the classification rule versions.
type RulesConfig struct {
	OrderType    string `yaml:"order_type"`
	EnergySystem string `yaml:"energy_system"`
}

// BMRSConfig configures the BMRS REST client.
type BMRSConfig struct {
	BaseURL           string  `yaml:"base_url"`
	WindowDays        int     `yaml:"window_days"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Config is the run file as written.
type Config struct {
	DateFrom          string          `yaml:"date_from"`
	DateTo            string          `yaml:"date_to"`
	Sections          map[string]bool `yaml:"sections"`
	Workbook          string          `yaml:"workbook"`
	WriteOutput       *bool           `yaml:"write_output"`
	CacheDir          string          `yaml:"cache_dir"`
	DatabaseURL       string          `yaml:"database_url"`
	ReferenceMaxAge   string          `yaml:"reference_max_age"`
	CoverageTolerance string          `yaml:"coverage_tolerance"`
	History           HistoryConfig   `yaml:"history"`
	FrequencyFile     string          `yaml:"frequency_file"`
	Rules             RulesConfig     `yaml:"rules"`
	BMRS              BMRSConfig      `yaml:"bmrs"`
	SummaryPDF        string          `yaml:"summary_pdf"`
	MetricsFile       string          `yaml:"metrics_file"`
}

// dotenvFile is loaded before the environment defaults are read.
var dotenvFile = ".env"

// LoadConfig loads the run file at path, or FMR_CONFIG when path is empty,
// over defaults taken from the environment. A .env file in the working
// directory is loaded first when present; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	var errs *multierror.Error
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = multierror.Append(errs, fmt.Errorf("config %s: %w", dotenvFile, err))
	}

	rules := dataset.DefaultRules()
	cfg := Config{
		Workbook:          getenvDefault("FMR_WORKBOOK", DefaultWorkbook),
		CacheDir:          getenvDefault("FMR_CACHE_DIR", filepath.FromSlash(DefaultCacheDir)),
		DatabaseURL:       getenvDefault("DATABASE_URL", os.Getenv("PG_DSN")),
		ReferenceMaxAge:   getenvDefault("FMR_REFERENCE_MAX_AGE", "P5D"),
		CoverageTolerance: getenvDefault("FMR_COVERAGE_TOLERANCE", "2h"),
		History: HistoryConfig{
			BalancingFrom: DefaultBalancingFrom,
			InertiaFrom:   DefaultInertiaFrom,
		},
		FrequencyFile: os.Getenv("FMR_FREQUENCY_FILE"),
		Rules: RulesConfig{
			OrderType:    string(rules.OrderType),
			EnergySystem: string(rules.EnergySystem),
		},
		BMRS: BMRSConfig{
			BaseURL:           getenvDefault("BMRS_BASE_URL", DefaultBMRSBaseURL),
			WindowDays:        DefaultBMRSWindowDays,
			RequestsPerSecond: getenvFloatDefault("BMRS_REQUESTS_PER_SECOND", 0),
		},
		MetricsFile: os.Getenv("FMR_METRICS_FILE"),
	}

	if path == "" {
		path = os.Getenv("FMR_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, multierror.Append(errs, err).ErrorOrNil()
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("config %s: %w", path, err))
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = getenvDefault("DATABASE_URL", os.Getenv("PG_DSN"))
	}
	return cfg, errs.ErrorOrNil()
}

// Run is a validated run configuration.
type Run struct {
	ID                string
	Period            Period
	Sections          map[string]bool
	Workbook          string
	WriteOutput       bool
	CacheDir          string
	DatabaseURL       string
	ReferenceMaxAge   period.Period
	CoverageTolerance time.Duration
	BalancingFrom     civil.Date
	InertiaFrom       civil.Date
	FrequencyFile     string
	Rules             dataset.Rules
	BMRS              BMRSConfig
	SummaryPDF        string
	MetricsFile       string
}

// Enabled reports whether a section is switched on.
func (r Run) Enabled(section string) bool { return r.Sections[section] }

// EnabledSections returns the switched-on sections in run order.
func (r Run) EnabledSections() []string {
	var out []string
	for _, s := range SectionOrder {
		if r.Enabled(s) {
			out = append(out, s)
		}
	}
	return out
}

// Resolve validates the configuration and returns the typed run. Every
// problem found is reported, not only the first.
func (c Config) Resolve() (Run, error) {
	var errs *multierror.Error
	run := Run{
		Workbook:      c.Workbook,
		WriteOutput:   c.WriteOutput == nil || *c.WriteOutput,
		CacheDir:      c.CacheDir,
		DatabaseURL:   c.DatabaseURL,
		FrequencyFile: c.FrequencyFile,
		BMRS:          c.BMRS,
		SummaryPDF:    c.SummaryPDF,
		MetricsFile:   c.MetricsFile,
		Rules: dataset.Rules{
			OrderType:    dataset.OrderTypeRule(c.Rules.OrderType),
			EnergySystem: dataset.EnergySystemRule(c.Rules.EnergySystem),
		},
	}

	from, errFrom := parseDate("date_from", c.DateFrom)
	to, errTo := parseDate("date_to", c.DateTo)
	errs = multierror.Append(errs, errFrom, errTo)
	if errFrom == nil && errTo == nil {
		p, err := NewPeriod(from, to)
		errs = multierror.Append(errs, err)
		run.Period = p
	}

	var err error
	run.BalancingFrom, err = parseDate("history.balancing_from", c.History.BalancingFrom)
	errs = multierror.Append(errs, err)
	run.InertiaFrom, err = parseDate("history.inertia_from", c.History.InertiaFrom)
	errs = multierror.Append(errs, err)

	if run.ReferenceMaxAge, err = period.Parse(c.ReferenceMaxAge); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("reference_max_age %q: %w", c.ReferenceMaxAge, err))
	}
	if run.CoverageTolerance, err = time.ParseDuration(c.CoverageTolerance); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("coverage_tolerance %q: %w", c.CoverageTolerance, err))
	}
	errs = multierror.Append(errs, run.Rules.Validate())

	sections, err := resolveSections(c.Sections)
	errs = multierror.Append(errs, err)
	run.Sections = sections

	if run.CacheDir == "" {
		errs = multierror.Append(errs, errors.New("cache_dir required"))
	}
	if run.WriteOutput && run.Workbook == "" {
		errs = multierror.Append(errs, errors.New("workbook required when write_output is set"))
	}
	if run.DatabaseURL == "" {
		errs = multierror.Append(errs, errors.New("database_url required (or DATABASE_URL / PG_DSN)"))
	}
	if run.BMRS.WindowDays <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("bmrs.window_days must be positive, got %d", run.BMRS.WindowDays))
	}
	if run.BMRS.RequestsPerSecond < 0 {
		errs = multierror.Append(errs, fmt.Errorf("bmrs.requests_per_second must not be negative, got %g", run.BMRS.RequestsPerSecond))
	}
	return run, errs.ErrorOrNil()
}

// Only restricts the run to the named sections.
func (r *Run) Only(names []string) error {
	if len(names) == 0 {
		return nil
	}
	only := map[string]bool{}
	for _, n := range names {
		if !knownSection(n) {
			return unknownSection(n)
		}
		only[n] = true
	}
	for _, s := range SectionOrder {
		r.Sections[s] = only[s]
	}
	return nil
}

// resolveSections defaults every section to on and applies the toggles.
func resolveSections(toggles map[string]bool) (map[string]bool, error) {
	out := make(map[string]bool, len(SectionOrder))
	for _, s := range SectionOrder {
		out[s] = true
	}
	var errs *multierror.Error
	names := make([]string, 0, len(toggles))
	for n := range toggles {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if !knownSection(n) {
			errs = multierror.Append(errs, unknownSection(n))
			continue
		}
		out[n] = toggles[n]
	}
	return out, errs.ErrorOrNil()
}

func knownSection(name string) bool {
	for _, s := range SectionOrder {
		if s == name {
			return true
		}
	}
	return false
}

func unknownSection(name string) error {
	return fmt.Errorf("unknown section %q: choose one of %s", name, strings.Join(SectionOrder, ", "))
}

func parseDate(field, value string) (civil.Date, error) {
	if value == "" {
		return civil.Date{}, fmt.Errorf("%s required", field)
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%s %q: %w", field, value, err)
	}
	return d, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
