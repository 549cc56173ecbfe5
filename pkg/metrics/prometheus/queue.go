// Package prometheus provides the Prometheus implementation of the
// queue metrics interface.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/duraq/pkg/metrics"
	"github.com/marmos91/duraq/pkg/queue"
)

func init() {
	metrics.RegisterQueueMetricsConstructor(NewQueueMetrics)
}

// queueMetrics is the Prometheus implementation of queue.QueueMetrics.
type queueMetrics struct {
	enqueueOperations *prometheus.CounterVec
	enqueueDuration   *prometheus.HistogramVec
	enqueueBytes      *prometheus.HistogramVec
	dequeueOperations *prometheus.CounterVec
	dequeueDuration   *prometheus.HistogramVec
	dequeueBytes      *prometheus.HistogramVec
	queueDepth        *prometheus.GaugeVec
	queueBytes        *prometheus.GaugeVec
	queueFull         *prometheus.CounterVec
	corruption        *prometheus.CounterVec
}

var durationBuckets = []float64{
	0.01, // 10us - page-cache writes
	0.05, // 50us
	0.1,  // 100us
	0.5,  // 500us
	1,    // 1ms
	5,    // 5ms - msync on slow disks
	10,   // 10ms
	50,   // 50ms
	100,  // 100ms
}

var sizeBuckets = []float64{
	64,       // tiny messages
	512,      // 512B
	4096,     // 4KB
	32768,    // 32KB
	131072,   // 128KB
	1048576,  // 1MB
	16777216, // 16MB
}

// NewQueueMetrics creates a new Prometheus-backed QueueMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewQueueMetrics() queue.QueueMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &queueMetrics{
		enqueueOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "duraq_enqueue_operations_total",
				Help: "Total number of successful enqueue operations",
			},
			[]string{"queue"},
		),
		enqueueDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duraq_enqueue_duration_milliseconds",
				Help:    "Duration of enqueue operations in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"queue"},
		),
		enqueueBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duraq_enqueue_bytes",
				Help:    "Distribution of enqueued payload sizes",
				Buckets: sizeBuckets,
			},
			[]string{"queue"},
		),
		dequeueOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "duraq_dequeue_operations_total",
				Help: "Total number of successful dequeue operations",
			},
			[]string{"queue"},
		),
		dequeueDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duraq_dequeue_duration_milliseconds",
				Help:    "Duration of dequeue operations in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"queue"},
		),
		dequeueBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duraq_dequeue_bytes",
				Help:    "Distribution of dequeued payload sizes",
				Buckets: sizeBuckets,
			},
			[]string{"queue"},
		),
		queueDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "duraq_queue_depth",
				Help: "Current number of live records per queue",
			},
			[]string{"queue"},
		),
		queueBytes: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "duraq_queue_bytes",
				Help: "Current live bytes per queue, including framing",
			},
			[]string{"queue"},
		),
		queueFull: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "duraq_queue_full_total",
				Help: "Total number of enqueues rejected because the queue was full",
			},
			[]string{"queue"},
		),
		corruption: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "duraq_corruption_total",
				Help: "Total number of failed integrity checks",
			},
			[]string{"queue"},
		),
	}
}

func (m *queueMetrics) ObserveEnqueue(name string, bytes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.enqueueOperations.WithLabelValues(name).Inc()
	m.enqueueDuration.WithLabelValues(name).Observe(duration.Seconds() * 1000)
	if bytes > 0 {
		m.enqueueBytes.WithLabelValues(name).Observe(float64(bytes))
	}
}

func (m *queueMetrics) ObserveDequeue(name string, bytes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.dequeueOperations.WithLabelValues(name).Inc()
	m.dequeueDuration.WithLabelValues(name).Observe(duration.Seconds() * 1000)
	if bytes > 0 {
		m.dequeueBytes.WithLabelValues(name).Observe(float64(bytes))
	}
}

func (m *queueMetrics) RecordDepth(name string, count, bytes uint64) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(name).Set(float64(count))
	m.queueBytes.WithLabelValues(name).Set(float64(bytes))
}

func (m *queueMetrics) RecordQueueFull(name string) {
	if m == nil {
		return
	}
	m.queueFull.WithLabelValues(name).Inc()
}

func (m *queueMetrics) RecordCorruption(name string) {
	if m == nil {
		return
	}
	m.corruption.WithLabelValues(name).Inc()
}
