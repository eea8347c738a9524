package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, checks for unknown keys, and
// validates the result.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	// The file's keys are flat (db_path, log_level, ...); decoding through a
	// struct that embeds every section lets each key reach its section.
	flat := struct {
		StoreConfig
		LimitsConfig
		FinalizeConfig
		LoggingConfig
	}{cfg.Store, cfg.Limits, cfg.Finalize, cfg.Logging}

	md, err := toml.Decode(string(data), &flat)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.Store, cfg.Limits = flat.StoreConfig, flat.LimitsConfig
	cfg.Finalize, cfg.Logging = flat.FinalizeConfig, flat.LoggingConfig

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file parsed successfully", "path", path)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}
