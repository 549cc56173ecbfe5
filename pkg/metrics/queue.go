package metrics

import (
	"github.com/marmos91/duraq/pkg/queue"
)

// NewQueueMetrics creates a new Prometheus-backed QueueMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or if
// the Prometheus implementation has not been linked in. A nil
// QueueMetrics is valid and results in zero overhead.
//
// Example usage:
//
//	metrics.InitRegistry()
//	q, err := queue.Open("jobs", queue.WithMetrics(metrics.NewQueueMetrics()))
func NewQueueMetrics() queue.QueueMetrics {
	if !IsEnabled() {
		return nil
	}
	if newPrometheusQueueMetrics == nil {
		return nil
	}
	return newPrometheusQueueMetrics()
}

// newPrometheusQueueMetrics is set by pkg/metrics/prometheus during
// package initialization. The indirection avoids an import cycle while
// keeping the API in one place.
var newPrometheusQueueMetrics func() queue.QueueMetrics

// RegisterQueueMetricsConstructor registers the Prometheus queue metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterQueueMetricsConstructor(constructor func() queue.QueueMetrics) {
	newPrometheusQueueMetrics = constructor
}
