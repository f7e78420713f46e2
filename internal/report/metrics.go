package report

import (
	"fmt"

	"github.com/apiarycd/glroster/internal/actions"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "glroster"

// WriteMetrics stores the run outcome in Prometheus text format at path.
func WriteMetrics(path string, summary actions.Summary) error {
	registry := prometheus.NewRegistry()

	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rows",
		Help:      "Roster rows processed by the last run, by status.",
	}, []string{"action", "status"})

	duration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the last run.",
	}, []string{"action"})

	finished := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	}, []string{"action", "run_id"})

	registry.MustRegister(rows, duration, finished)

	for _, status := range []actions.Status{actions.StatusOK, actions.StatusSkipped, actions.StatusFailed} {
		rows.WithLabelValues(summary.Action, string(status)).Set(float64(summary.Count(status)))
	}
	duration.WithLabelValues(summary.Action).Set(summary.Duration().Seconds())
	finished.WithLabelValues(summary.Action, summary.RunID).Set(float64(summary.Finished.Unix()))

	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	return nil
}
