package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile stamps the run completion time and writes every registered metric to path
// in the text exposition format read by node-exporter's textfile collector. The write is
// atomic. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}

	LastRunTimestamp.Set(float64(time.Now().Unix()))

	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}

	return nil
}
