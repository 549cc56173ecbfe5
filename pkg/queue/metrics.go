package queue

import "time"

// QueueMetrics receives operation observations from the engine.
//
// A nil QueueMetrics is valid and results in zero overhead; the engine
// checks for nil at every call site. The Prometheus implementation lives
// in pkg/metrics/prometheus and is obtained through pkg/metrics to avoid
// an import cycle.
type QueueMetrics interface {
	// ObserveEnqueue records a successful enqueue of the given payload size.
	ObserveEnqueue(queue string, bytes int, duration time.Duration)

	// ObserveDequeue records a successful dequeue of the given payload size.
	ObserveDequeue(queue string, bytes int, duration time.Duration)

	// RecordDepth records the current number of live records and live bytes.
	RecordDepth(queue string, count, bytes uint64)

	// RecordQueueFull records an enqueue rejected for lack of space.
	RecordQueueFull(queue string)

	// RecordCorruption records a failed integrity check.
	RecordCorruption(queue string)
}
