package config

import (
	"errors"
	"fmt"
)

// Validation range constants.
const (
	minLengthLimit       = 1
	minTombstoneRetained = 0
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateFinalize(&cfg.Finalize)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateStore(s *StoreConfig) []error {
	if s.DBPath == "" {
		return []error{errors.New("db_path: must not be empty")}
	}

	return nil
}

func validateLimits(l *LimitsConfig) []error {
	var errs []error

	if l.URLLengthMax < minLengthLimit {
		errs = append(errs, fmt.Errorf("url_length_max: must be >= %d, got %d", minLengthLimit, l.URLLengthMax))
	}

	if l.TagLengthMax < minLengthLimit {
		errs = append(errs, fmt.Errorf("tag_length_max: must be >= %d, got %d", minLengthLimit, l.TagLengthMax))
	}

	if l.TitleLengthMax < minLengthLimit {
		errs = append(errs, fmt.Errorf("title_length_max: must be >= %d, got %d", minLengthLimit, l.TitleLengthMax))
	}

	return errs
}

func validateFinalize(f *FinalizeConfig) []error {
	if f.TombstoneRetentionDays < minTombstoneRetained {
		return []error{fmt.Errorf("tombstone_retention_days: must be >= %d, got %d",
			minTombstoneRetained, f.TombstoneRetentionDays)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}
