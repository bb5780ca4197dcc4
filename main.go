package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	datasetapp "flexmarket-report/internal/dataset/application"
	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/dataset/infrastructure/bmrs"
	"flexmarket-report/internal/dataset/infrastructure/filecache"
	"flexmarket-report/internal/dataset/infrastructure/postgres"
	"flexmarket-report/internal/observability/metrics"
	"flexmarket-report/internal/report/application"
	report "flexmarket-report/internal/report/domain"
	"flexmarket-report/internal/report/infrastructure/frequency"
	"flexmarket-report/internal/report/interfaces"
)

var (
	configPath string
	logJSON    bool
	logLevel   string

	dateFrom   string
	dateTo     string
	workbook   string
	noOutput   bool
	onlyRun    []string
	summaryPDF string
)

var rootCmd = &cobra.Command{
	Use:           "fmr",
	Short:         "UK flexibility market report",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load datasets and build the report workbook",
	Long: `Load every dataset the enabled sections need, refreshing the CSV cache
where it is stale or short of the requested range, then build each section
and write it into the workbook.

  fmr run --from 2024-01-01 --to 2024-01-31
  fmr run --config report.yaml --section eac --section stor
  fmr run --no-output --summary-pdf run.pdf`,
	RunE: runReport,
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the catalogued datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listDatasets(cmd.OutOrStdout())
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <dataset>",
	Short: "Load one dataset through the cache and report its coverage",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

var columnCmd = &cobra.Command{
	Use:   "column <n>",
	Short: "Print the spreadsheet letter of a 1-based column number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("column %q: %w", args[0], err)
		}
		letter, err := report.ColumnLetter(n)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), letter)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "run file (default $FMR_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log JSON lines instead of console output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().StringVar(&dateFrom, "from", "", "first day of the period (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&dateTo, "to", "", "last day of the period (YYYY-MM-DD)")

	runCmd.Flags().StringVar(&workbook, "workbook", "", "workbook to update")
	runCmd.Flags().BoolVar(&noOutput, "no-output", false, "build sections without writing the workbook")
	runCmd.Flags().StringSliceVar(&onlyRun, "section", nil, "build only these sections: "+strings.Join(application.SectionOrder, ", "))
	runCmd.Flags().StringVar(&summaryPDF, "summary-pdf", "", "write a run summary PDF here")

	rootCmd.AddCommand(runCmd, datasetsCmd, loadCmd, columnCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", logLevel, err)
	}
	var w io.Writer = os.Stderr
	if !logJSON {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// resolveRun loads the run file and applies the command line overrides.
func resolveRun(cmd *cobra.Command) (application.Run, error) {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return application.Run{}, err
	}
	if dateFrom != "" {
		cfg.DateFrom = dateFrom
	}
	if dateTo != "" {
		cfg.DateTo = dateTo
	}
	if cmd.Flags().Changed("workbook") {
		cfg.Workbook = workbook
	}
	if noOutput {
		off := false
		cfg.WriteOutput = &off
	}
	if summaryPDF != "" {
		cfg.SummaryPDF = summaryPDF
	}
	run, err := cfg.Resolve()
	if err != nil {
		return run, err
	}
	if err := run.Only(onlyRun); err != nil {
		return run, err
	}
	run.ID = uuid.NewString()
	return run, nil
}

// openLoader wires the CSV cache over the warehouse and the BMRS API.
func openLoader(run application.Run, logger zerolog.Logger) (*datasetapp.Loader, func(), error) {
	cache, err := filecache.NewStore(run.CacheDir)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("pgx", run.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	var progress io.Writer
	if !logJSON {
		progress = os.Stderr
	}
	client, err := bmrs.NewClient(bmrs.Options{
		BaseURL:           run.BMRS.BaseURL,
		WindowDays:        run.BMRS.WindowDays,
		RequestsPerSecond: run.BMRS.RequestsPerSecond,
		Progress:          progress,
		Logger:            logger.With().Str("component", "bmrs").Logger(),
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	loader, err := datasetapp.NewLoader(cache, datasetapp.NewRegistry(postgres.NewSource(db), client), datasetapp.Options{
		Rules:             run.Rules,
		ReferenceMaxAge:   run.ReferenceMaxAge,
		CoverageTolerance: run.CoverageTolerance,
	}, logger.With().Str("component", "loader").Logger())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return loader, func() { db.Close() }, nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	run, err := resolveRun(cmd)
	if err != nil {
		return err
	}
	metrics.Init()
	defer func() {
		if err := metrics.WriteTextfile(run.MetricsFile); err != nil {
			logger.Warn().Err(err).Msg("metrics not written")
		}
	}()

	loader, closeLoader, err := openLoader(run, logger)
	if err != nil {
		return err
	}
	defer closeLoader()

	var sink application.Sink
	var wb *interfaces.Workbook
	if run.WriteOutput {
		wb, err = interfaces.OpenWorkbook(run.Workbook, logger.With().Str("component", "workbook").Logger())
		if err != nil {
			return err
		}
		defer wb.Close()
		sink = wb
	}
	var freq application.FrequencySource
	if run.FrequencyFile != "" {
		freq = frequency.ReadFile
	}

	runner, err := application.NewRunner(run, loader, sink, freq, logger)
	if err != nil {
		return err
	}
	summary, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	if wb != nil {
		start := time.Now()
		err := wb.Save()
		metrics.ObserveExport("xlsx", result(err), time.Since(start))
		if err != nil {
			return err
		}
	}
	if run.SummaryPDF != "" {
		start := time.Now()
		err := writeSummaryPDF(run.SummaryPDF, summary)
		metrics.ObserveExport("pdf", result(err), time.Since(start))
		if err != nil {
			return err
		}
	}
	logger.Info().Str("run_id", run.ID).Int("sections", len(summary.Sections)).Dur("elapsed", summary.Finished.Sub(summary.Started)).Msg("report run finished")
	return nil
}

func writeSummaryPDF(path string, summary application.Summary) error {
	data, err := interfaces.BuildSummaryPDF(summary)
	if err != nil {
		return fmt.Errorf("summary pdf: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("summary pdf: %w", err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}

func runLoad(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	run, err := resolveRun(cmd)
	if err != nil {
		return err
	}
	metrics.Init()
	loader, closeLoader, err := openLoader(run, logger)
	if err != nil {
		return err
	}
	defer closeLoader()

	t, err := loader.LoadNamed(cmd.Context(), args[0], run.Period.Range())
	if err != nil {
		return err
	}
	d, err := dataset.Describe(dataset.Name(args[0]))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d rows, %d columns\n", d.Name, t.Len(), t.Width())
	if len(d.DateColumns) == 0 {
		return nil
	}
	cov, err := dataset.CoverageOf(t, d.DateColumns)
	if err != nil {
		return err
	}
	if cov.OK {
		fmt.Fprintf(out, "covers %s to %s\n", cov.Min.Format(time.RFC3339), cov.Max.Format(time.RFC3339))
	}
	return nil
}

func listDatasets(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tCACHE FILE\tDATE COLUMNS")
	for _, name := range dataset.Names() {
		d, err := dataset.Describe(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Source, d.CacheFile, strings.Join(d.DateColumns, ","))
	}
	return tw.Flush()
}
