package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FailedTargets counts diagnosed failed targets per failure type
	FailedTargets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmedic_failed_targets_total",
			Help: "Total number of failed targets diagnosed",
		},
		[]string{"failure_type"},
	)

	// LogReadErrors counts stderr logs that could not be read
	LogReadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobmedic_log_read_errors_total",
			Help: "Total number of stderr logs that could not be read",
		},
	)

	// AccountingQueries counts sacct invocations by result
	AccountingQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmedic_accounting_queries_total",
			Help: "Total number of accounting queries",
		},
		[]string{"result"},
	)

	// RestartEndpoints is the size of the last computed restart set
	RestartEndpoints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobmedic_restart_endpoints",
			Help: "Number of targets handed to the workflow engine for restart",
		},
	)

	// RestartsTotal counts restart attempts by result
	RestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmedic_restarts_total",
			Help: "Total number of restart attempts",
		},
		[]string{"result"},
	)

	// RunDuration tracks the duration of a diagnose run
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobmedic_run_duration_seconds",
			Help:    "Duration of a diagnose run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// LastRunTimestamp is the unix time the last run finished
	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobmedic_last_run_timestamp_seconds",
			Help: "Unix time the last diagnose run finished",
		},
	)
)

// ObserveRun records the run duration and completion time.
func ObserveRun(start time.Time) {
	RunDuration.Observe(time.Since(start).Seconds())
	LastRunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes all registered metrics in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return writeTextfile(path, prometheus.DefaultGatherer)
}

func writeTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return fmt.Errorf("metrics file path required")
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
