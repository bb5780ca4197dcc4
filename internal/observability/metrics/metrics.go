package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fmr_"

	resultSuccess = "success"
	resultError   = "error"

	loadResultCached  = "cached"
	loadResultFetched = "fetched"
)

var (
	registerOnce sync.Once

	datasetLoadTotal   *prometheus.CounterVec
	datasetLoadLatency *prometheus.HistogramVec
	datasetFetchTotal  *prometheus.CounterVec
	datasetFetchRows   *prometheus.CounterVec

	bmrsRequestTotal   *prometheus.CounterVec
	bmrsRequestLatency *prometheus.HistogramVec

	sectionTotal   *prometheus.CounterVec
	sectionLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers the report pipeline metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		datasetLoadTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dataset_load_total",
				Help: "Total dataset loads by dataset and result",
			},
			[]string{"dataset", "result"},
		)
		datasetLoadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dataset_load_latency_seconds",
				Help:    "Dataset load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"dataset"},
		)
		datasetFetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dataset_fetch_total",
				Help: "Total source fetches by dataset and result",
			},
			[]string{"dataset", "result"},
		)
		datasetFetchRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dataset_fetch_rows_total",
				Help: "Rows fetched from sources by dataset",
			},
			[]string{"dataset"},
		)

		bmrsRequestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bmrs_requests_total",
				Help: "Total BMRS API requests by dataset code and result",
			},
			[]string{"code", "result"},
		)
		bmrsRequestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "bmrs_request_latency_seconds",
				Help:    "BMRS API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code"},
		)

		sectionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_section_total",
				Help: "Total report section builds by section and result",
			},
			[]string{"section", "result"},
		)
		sectionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_section_latency_seconds",
				Help:    "Report section build latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"section"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		)

		prometheus.MustRegister(
			datasetLoadTotal,
			datasetLoadLatency,
			datasetFetchTotal,
			datasetFetchRows,
			bmrsRequestTotal,
			bmrsRequestLatency,
			sectionTotal,
			sectionLatency,
			exportTotal,
			exportLatency,
		)
	})
}

// WriteTextfile writes the default registry in the node exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

// ObserveDatasetLoad records a dataset load and whether it needed a fetch.
func ObserveDatasetLoad(dataset, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if datasetLoadTotal != nil {
		datasetLoadTotal.WithLabelValues(dataset, result).Inc()
	}
	if datasetLoadLatency != nil {
		datasetLoadLatency.WithLabelValues(dataset).Observe(duration.Seconds())
	}
}

// ObserveDatasetFetch records one source fetch and the rows it returned.
func ObserveDatasetFetch(dataset, result string, rows int) {
	if result == "" {
		result = resultSuccess
	}
	if datasetFetchTotal != nil {
		datasetFetchTotal.WithLabelValues(dataset, result).Inc()
	}
	if datasetFetchRows != nil && rows > 0 {
		datasetFetchRows.WithLabelValues(dataset).Add(float64(rows))
	}
}

// ObserveBMRSRequest records one BMRS API call.
func ObserveBMRSRequest(code, result string, duration time.Duration) {
	if code == "" {
		code = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if bmrsRequestTotal != nil {
		bmrsRequestTotal.WithLabelValues(code, result).Inc()
	}
	if bmrsRequestLatency != nil {
		bmrsRequestLatency.WithLabelValues(code).Observe(duration.Seconds())
	}
}

// ObserveSection records a report section build.
func ObserveSection(section, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if sectionTotal != nil {
		sectionTotal.WithLabelValues(section, result).Inc()
	}
	if sectionLatency != nil {
		sectionLatency.WithLabelValues(section).Observe(duration.Seconds())
	}
}

// ObserveExport records a workbook or PDF export.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	LoadResultCached  = loadResultCached
	LoadResultFetched = loadResultFetched
)
