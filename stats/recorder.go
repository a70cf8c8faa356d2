package stats

// Labels are metric dimensions such as phase and status.
type Labels map[string]string

// Recorder is the metrics sink used by the sync job.
// Implementations must be safe for concurrent use.
type Recorder interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Close() error
}

// Metric names emitted by TableStatsManager.
const (
	MetricTableTotal           = "cdsync_table_total"            // labels: phase, status
	MetricRowsTotal            = "cdsync_rows_total"             // labels: phase
	MetricTableDurationSeconds = "cdsync_table_duration_seconds" // labels: phase, status
	MetricRunTotal             = "cdsync_run_total"              // labels: status
)

// NopRecorder discards all metrics.
type NopRecorder struct{}

func (NopRecorder) IncCounter(string, float64, Labels)       {}
func (NopRecorder) ObserveHistogram(string, float64, Labels) {}
func (NopRecorder) Close() error                             { return nil }
