// Package config implements TOML configuration loading and validation for
// the bookmark sync engine.
package config

// Config is the top-level configuration structure.
type Config struct {
	Store    StoreConfig    `toml:"store"`
	Limits   LimitsConfig   `toml:"limits"`
	Finalize FinalizeConfig `toml:"finalize"`
	Logging  LoggingConfig  `toml:"logging"`
}

// StoreConfig controls the relational store the engine opens.
type StoreConfig struct {
	DBPath string `toml:"db_path"`
}

// LimitsConfig mirrors bookmarksync.Limits as config-file-settable policy
// constants (spec §6). Zero values fall back to the engine's defaults.
type LimitsConfig struct {
	URLLengthMax   int `toml:"url_length_max"`
	TagLengthMax   int `toml:"tag_length_max"`
	TitleLengthMax int `toml:"title_length_max"`
}

// FinalizeConfig holds the tombstone retention setting. It is validated on
// load but not read by the engine; the finalizer does no tombstone cleanup.
type FinalizeConfig struct {
	TombstoneRetentionDays int `toml:"tombstone_retention_days"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`
}
