package config

import (
	"strings"
	"testing"

	"github.com/marmos91/duraq/internal/bytesize"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_MetricsPortOutOfRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_BlockSizeNotPageMultiple(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.BlockSize = 5000
	cfg.Storage.MaxSize = 50000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unaligned block size")
	}
	if !strings.Contains(err.Error(), "block_size") {
		t.Errorf("Expected block_size error, got: %v", err)
	}
}

func TestValidate_MaxSizeNotBlockMultiple(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.BlockSize = 64 * bytesize.KiB
	cfg.Storage.MaxSize = 200 * bytesize.KiB

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unaligned max size")
	}
	if !strings.Contains(err.Error(), "max_size") {
		t.Errorf("Expected max_size error, got: %v", err)
	}
}

func TestValidate_MaxSizeBelowTwoBlocks(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.BlockSize = 64 * bytesize.KiB
	cfg.Storage.MaxSize = 64 * bytesize.KiB

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for max size below two blocks")
	}
	if !strings.Contains(err.Error(), "two blocks") {
		t.Errorf("Expected 'two blocks' error, got: %v", err)
	}
}
