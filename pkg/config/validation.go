package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid or inconsistent values.
//
// Struct-tag validation covers enumerations and ranges; the storage
// geometry rules that relate fields to each other are checked explicitly.
func Validate(cfg *Config) error {
	v := validator.New()

	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				return fmt.Errorf("invalid value for %s: failed %q constraint", fe.Namespace(), fe.Tag())
			}
		}
		return err
	}

	return validateStorage(&cfg.Storage)
}

// validateStorage checks the geometry rules the queue engine requires.
func validateStorage(cfg *StorageConfig) error {
	blockSize := cfg.BlockSize.Uint64()
	maxSize := cfg.MaxSize.Uint64()

	if blockSize < 4096 || blockSize%4096 != 0 {
		return fmt.Errorf("storage.block_size %s must be a positive multiple of 4Ki", cfg.BlockSize)
	}
	if maxSize%blockSize != 0 {
		return fmt.Errorf("storage.max_size %s must be a multiple of storage.block_size %s",
			cfg.MaxSize, cfg.BlockSize)
	}
	if maxSize < 2*blockSize {
		return fmt.Errorf("storage.max_size %s must be at least two blocks", cfg.MaxSize)
	}

	return nil
}
