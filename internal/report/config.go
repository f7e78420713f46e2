package report

type Config struct {
	// MetricsFile is a node_exporter textfile collector path. Empty disables
	// metrics.
	MetricsFile string
}
