// Package metrics owns the process-wide Prometheus registry and the
// constructor indirection that lets pkg/queue consume metrics without
// importing the Prometheus implementation.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registryMu sync.Mutex
	registry   *prometheus.Registry
)

// InitRegistry creates the process-wide registry and enables metrics.
// Safe to call more than once; subsequent calls are no-ops.
func InitRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry
}

// Handler returns an http.Handler serving the registry in the Prometheus
// exposition format. Returns nil when metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
