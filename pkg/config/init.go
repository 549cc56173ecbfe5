package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is the commented configuration template written by InitConfig.
// It must stay loadable by Load and in sync with the defaults in defaults.go.
const sampleConfig = `# duraq Configuration File
#
# All values can be overridden with environment variables using the
# DURAQ_ prefix, for example:
#   DURAQ_LOGGING_LEVEL=DEBUG
#   DURAQ_STORAGE_DIR=/var/lib/duraq

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: INFO
  # Output format: text, json
  format: text
  # Destination: stdout, stderr, or a file path
  output: stdout

storage:
  # Directory holding the <name>.dat queue backing files
  dir: storage
  # Mapping granularity. Records never cross block boundaries, so this
  # is also the upper bound on a framed record. Must be a multiple of 4Ki.
  block_size: 64Mi
  # Hard cap on a backing file's length. Must be a multiple of block_size
  # and at least two blocks.
  max_size: 1Gi

metrics:
  # Enable Prometheus metrics collection
  enabled: false
  # HTTP port for the /metrics endpoint
  port: 9090
`

// InitConfig creates a sample configuration file at the default location.
//
// Returns the path of the created file. Fails if a config file already
// exists unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path.
//
// Fails if the file already exists unless force is true.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
