package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/duraq/internal/bytesize"
	"github.com/marmos91/duraq/internal/cli/output"
	"github.com/marmos91/duraq/pkg/queue"
)

var statStorageDir string

var statCmd = &cobra.Command{
	Use:   "stat <name>",
	Short: "Show queue state and geometry",
	Long: `Show the state of a queue: record count, live bytes, file geometry
and ring positions. Opening the queue validates the header and walks all
live records, so stat also acts as an integrity check.

Examples:
  # Inspect the "jobs" queue in the configured storage directory
  duraq stat jobs

  # Inspect a queue in a specific directory
  duraq stat jobs --storage-dir /var/lib/duraq`,
	Args: cobra.ExactArgs(1),
	RunE: runStat,
}

func init() {
	statCmd.Flags().StringVar(&statStorageDir, "storage-dir", "", "Directory holding the queue backing files (overrides config)")
}

func runStat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	q, err := queue.Open(args[0], queueOptions(cfg, statStorageDir)...)
	if err != nil {
		return err
	}
	defer q.Close()

	stats := q.Stats()

	pairs := [][2]string{
		{"Name", stats.Name},
		{"Path", stats.Path},
		{"Records", strconv.FormatUint(stats.Count, 10)},
		{"Live bytes", bytesize.ByteSize(stats.Size).String()},
		{"Capacity", bytesize.ByteSize(stats.Capacity).String()},
		{"Max size", bytesize.ByteSize(stats.MaxSize).String()},
		{"Block size", bytesize.ByteSize(stats.BlockSize).String()},
		{"Write position", strconv.FormatUint(stats.WritePos, 10)},
		{"Read position", strconv.FormatUint(stats.ReadPos, 10)},
	}

	if err := output.SimpleTable(os.Stdout, pairs); err != nil {
		return fmt.Errorf("failed to render stats: %w", err)
	}

	return nil
}
