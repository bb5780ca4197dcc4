package application

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "flexmarket-report/internal/dataset/domain"
)

func validConfig() Config {
	rules := dataset.DefaultRules()
	return Config{
		DateFrom:          "2024-01-01",
		DateTo:            "2024-01-31",
		Workbook:          "report.xlsx",
		CacheDir:          "data",
		DatabaseURL:       "postgres://localhost/flex",
		ReferenceMaxAge:   "P5D",
		CoverageTolerance: "2h",
		History:           HistoryConfig{BalancingFrom: DefaultBalancingFrom, InertiaFrom: DefaultInertiaFrom},
		Rules:             RulesConfig{OrderType: string(rules.OrderType), EnergySystem: string(rules.EnergySystem)},
		BMRS:              BMRSConfig{BaseURL: DefaultBMRSBaseURL, WindowDays: DefaultBMRSWindowDays},
	}
}

func TestResolveDefaults(t *testing.T) {
	run, err := validConfig().Resolve()
	require.NoError(t, err)

	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 1}, run.Period.From)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 31}, run.Period.To)
	assert.Equal(t, SectionOrder, run.EnabledSections())
	assert.True(t, run.WriteOutput)
	assert.Equal(t, 2*time.Hour, run.CoverageTolerance)
	assert.Equal(t, civil.Date{Year: 2023, Month: time.November, Day: 1}, run.BalancingFrom)
}

func TestResolveSectionToggles(t *testing.T) {
	cfg := validConfig()
	cfg.Sections = map[string]bool{SectionRevenue: false, SectionEAC: true}
	off := false
	cfg.WriteOutput = &off
	cfg.Workbook = ""

	run, err := cfg.Resolve()
	require.NoError(t, err)
	assert.False(t, run.Enabled(SectionRevenue))
	assert.True(t, run.Enabled(SectionEAC))
	assert.False(t, run.WriteOutput)
}

func TestResolveReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.DateFrom = ""
	cfg.CacheDir = ""
	cfg.CoverageTolerance = "soon"
	cfg.Sections = map[string]bool{"bogus": true}

	_, err := cfg.Resolve()
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 4)
	msg := err.Error()
	for _, want := range []string{"date_from required", "cache_dir required", "coverage_tolerance", `unknown section "bogus"`} {
		assert.Contains(t, msg, want)
	}
}

func TestResolveRejectsInvertedPeriod(t *testing.T) {
	cfg := validConfig()
	cfg.DateFrom, cfg.DateTo = "2024-02-01", "2024-01-01"
	_, err := cfg.Resolve()
	assert.Error(t, err)
}

func TestRunOnly(t *testing.T) {
	run, err := validConfig().Resolve()
	require.NoError(t, err)

	require.NoError(t, run.Only([]string{SectionSTOR, SectionEAC}))
	assert.Equal(t, []string{SectionEAC, SectionSTOR}, run.EnabledSections())

	err = run.Only([]string{"nope"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), SectionFundamentals))
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/flex")
	t.Setenv("FMR_CONFIG", "")
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
date_from: "2024-03-01"
date_to: "2024-03-31"
sections:
  revenue: false
bmrs:
  base_url: https://example.test/bmrs
  window_days: 3
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/flex", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.BMRS.WindowDays)

	run, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 1}, run.Period.From)
	assert.False(t, run.Enabled(SectionRevenue))
	assert.True(t, run.Enabled(SectionSTOR))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func useDotenv(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	old := dotenvFile
	dotenvFile = path
	t.Cleanup(func() { dotenvFile = old })
}

func TestLoadConfigReportsMalformedDotenv(t *testing.T) {
	t.Setenv("FMR_CONFIG", "")
	useDotenv(t, "BAD-KEY=1\n")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".env")
	assert.Contains(t, err.Error(), "unexpected character")
}

func TestLoadConfigWithoutDotenv(t *testing.T) {
	t.Setenv("FMR_CONFIG", "")
	useDotenv(t, "")

	_, err := LoadConfig("")
	assert.NoError(t, err)
}

func TestLoadConfigReadsDotenv(t *testing.T) {
	t.Setenv("FMR_CONFIG", "")
	t.Setenv("FMR_WORKBOOK", "")
	os.Unsetenv("FMR_WORKBOOK")
	useDotenv(t, "FMR_WORKBOOK=from-dotenv.xlsx\n")
	t.Cleanup(func() { os.Unsetenv("FMR_WORKBOOK") })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.xlsx", cfg.Workbook)
}
