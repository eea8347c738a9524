package config

// Default values for configuration options. Chosen to be safe, reasonable
// starting points that work without any config file.
const (
	defaultDBPath                 = "bookmarksync.db"
	defaultURLLengthMax           = 65536
	defaultTagLengthMax           = 100
	defaultTitleLengthMax         = 4096
	defaultTombstoneRetentionDays = 21
	defaultLogLevel               = "info"
	defaultLogFormat              = "auto"
)

// DefaultConfig returns a Config populated with all default values. Used
// both as the starting point for TOML decoding (so unset fields retain
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Store:    defaultStoreConfig(),
		Limits:   defaultLimitsConfig(),
		Finalize: defaultFinalizeConfig(),
		Logging:  defaultLoggingConfig(),
	}
}

func defaultStoreConfig() StoreConfig {
	return StoreConfig{DBPath: defaultDBPath}
}

func defaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		URLLengthMax:   defaultURLLengthMax,
		TagLengthMax:   defaultTagLengthMax,
		TitleLengthMax: defaultTitleLengthMax,
	}
}

func defaultFinalizeConfig() FinalizeConfig {
	return FinalizeConfig{TombstoneRetentionDays: defaultTombstoneRetentionDays}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
