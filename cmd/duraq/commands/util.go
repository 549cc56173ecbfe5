package commands

import (
	"fmt"

	"github.com/marmos91/duraq/internal/logger"
	"github.com/marmos91/duraq/pkg/config"
	"github.com/marmos91/duraq/pkg/queue"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the configuration from the --config flag or the
// default location and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// queueOptions translates the storage configuration into queue options.
// A non-empty storageDir overrides the configured directory.
func queueOptions(cfg *config.Config, storageDir string) []queue.Option {
	dir := cfg.Storage.Dir
	if storageDir != "" {
		dir = storageDir
	}

	return []queue.Option{
		queue.WithStorageDir(dir),
		queue.WithBlockSize(cfg.Storage.BlockSize.Uint64()),
		queue.WithMaxSize(cfg.Storage.MaxSize.Uint64()),
	}
}
