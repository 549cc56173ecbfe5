package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/duraq/internal/bytesize"
	"github.com/marmos91/duraq/internal/cli/prompt"
	"github.com/marmos91/duraq/pkg/queue"
)

var (
	drainStorageDir string
	drainYes        bool
	drainDiscard    bool
)

var drainCmd = &cobra.Command{
	Use:   "drain <name>",
	Short: "Dequeue all records from a queue",
	Long: `Dequeue every record from a queue, writing each payload to stdout
followed by a newline. Draining is destructive: dequeued records are gone.

Examples:
  # Drain the "jobs" queue to stdout
  duraq drain jobs

  # Drain without writing payloads anywhere
  duraq drain jobs --discard

  # Skip the confirmation prompt
  duraq drain jobs --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runDrain,
}

func init() {
	drainCmd.Flags().StringVar(&drainStorageDir, "storage-dir", "", "Directory holding the queue backing files (overrides config)")
	drainCmd.Flags().BoolVar(&drainYes, "yes", false, "Skip the confirmation prompt")
	drainCmd.Flags().BoolVar(&drainDiscard, "discard", false, "Drop payloads instead of writing them to stdout")
}

func runDrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name := args[0]

	q, err := queue.Open(name, queueOptions(cfg, drainStorageDir)...)
	if err != nil {
		return err
	}
	defer q.Close()

	count := q.Count()
	if count == 0 {
		fmt.Fprintf(os.Stderr, "Queue %q is empty\n", name)
		return nil
	}

	ok, err := prompt.ConfirmWithForce(
		fmt.Sprintf("Drain %d records from queue %q? This cannot be undone", count, name),
		drainYes)
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			return nil
		}
		return err
	}
	if !ok {
		return nil
	}

	var drained, bytes uint64
	for {
		payload, err := q.Dequeue()
		if err != nil {
			return fmt.Errorf("drained %d records, then: %w", drained, err)
		}
		if payload == nil {
			break
		}

		drained++
		bytes += uint64(len(payload))

		if !drainDiscard {
			if _, err := os.Stdout.Write(payload); err != nil {
				return fmt.Errorf("failed to write payload: %w", err)
			}
			if _, err := os.Stdout.Write([]byte{'\n'}); err != nil {
				return fmt.Errorf("failed to write payload: %w", err)
			}
		}
	}

	fmt.Fprintf(os.Stderr, "Drained %d records (%s) from queue %q\n",
		drained, bytesize.ByteSize(bytes), name)

	return nil
}
