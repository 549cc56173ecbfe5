package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/duraq/internal/bytesize"
	"github.com/marmos91/duraq/internal/cli/output"
	"github.com/marmos91/duraq/internal/logger"
	"github.com/marmos91/duraq/pkg/metrics"
	"github.com/marmos91/duraq/pkg/queue"
)

var (
	benchStorageDir  string
	benchCount       int
	benchSize        int
	benchMetricsPort int
)

var benchCmd = &cobra.Command{
	Use:   "bench [name]",
	Short: "Measure enqueue and dequeue throughput",
	Long: `Run a throughput benchmark against a queue: enqueue a batch of
fixed-size payloads, then dequeue them all, and report both phases.

The queue must start empty. With --metrics-port, a Prometheus endpoint
is served on /metrics for the duration of the run.

Examples:
  # Default run: 10000 records of 1024 bytes against queue "bench"
  duraq bench

  # Larger payloads against a named queue
  duraq bench jobs --count 50000 --size 4096

  # Expose Prometheus metrics while benchmarking
  duraq bench --metrics-port 9090`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchStorageDir, "storage-dir", "", "Directory holding the queue backing files (overrides config)")
	benchCmd.Flags().IntVar(&benchCount, "count", 10000, "Number of records to enqueue and dequeue")
	benchCmd.Flags().IntVar(&benchSize, "size", 1024, "Payload size in bytes")
	benchCmd.Flags().IntVar(&benchMetricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port during the run (0 disables)")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name := "bench"
	if len(args) == 1 {
		name = args[0]
	}

	if benchCount < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if benchSize < 1 {
		return fmt.Errorf("size must be at least 1")
	}

	opts := queueOptions(cfg, benchStorageDir)

	if benchMetricsPort > 0 {
		metrics.InitRegistry()
		opts = append(opts, queue.WithMetrics(metrics.NewQueueMetrics()))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: fmt.Sprintf(":%d", benchMetricsPort), Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logger.Err(err))
			}
		}()
		defer srv.Close()

		fmt.Fprintf(os.Stderr, "Serving metrics on :%d/metrics\n", benchMetricsPort)
	}

	q, err := queue.Open(name, opts...)
	if err != nil {
		return err
	}
	defer q.Close()

	if !q.Empty() {
		return fmt.Errorf("queue %q holds %d records; bench needs an empty queue", name, q.Count())
	}

	payload := make([]byte, benchSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	enqueued := 0
	enqueueStart := time.Now()
	for i := 0; i < benchCount; i++ {
		ok, err := q.Enqueue(payload)
		if err != nil {
			return fmt.Errorf("enqueue failed after %d records: %w", enqueued, err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "Queue full after %d records; dequeuing what fit\n", enqueued)
			break
		}
		enqueued++
	}
	enqueueDur := time.Since(enqueueStart)

	dequeued := 0
	dequeueStart := time.Now()
	for {
		p, err := q.Dequeue()
		if err != nil {
			return fmt.Errorf("dequeue failed after %d records: %w", dequeued, err)
		}
		if p == nil {
			break
		}
		dequeued++
	}
	dequeueDur := time.Since(dequeueStart)

	table := output.NewTableData("Phase", "Ops", "Bytes", "Duration", "Ops/s", "Throughput")
	table.AddRow(benchRow("enqueue", enqueued, benchSize, enqueueDur)...)
	table.AddRow(benchRow("dequeue", dequeued, benchSize, dequeueDur)...)

	if err := output.PrintTable(os.Stdout, table); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}

	return nil
}

// benchRow formats one benchmark phase as a table row.
func benchRow(phase string, ops, size int, dur time.Duration) []string {
	totalBytes := uint64(ops) * uint64(size)

	opsPerSec := 0.0
	bytesPerSec := 0.0
	if dur > 0 {
		opsPerSec = float64(ops) / dur.Seconds()
		bytesPerSec = float64(totalBytes) / dur.Seconds()
	}

	return []string{
		phase,
		fmt.Sprintf("%d", ops),
		bytesize.ByteSize(totalBytes).String(),
		dur.Round(time.Millisecond).String(),
		fmt.Sprintf("%.0f", opsPerSec),
		fmt.Sprintf("%s/s", bytesize.ByteSize(bytesPerSec)),
	}
}
