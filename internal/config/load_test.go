package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level logger that writes to stderr, ensuring
// all config debug output appears in test output for CI visibility.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	tomlContent := `
db_path = "/var/lib/bookmarksync/state.db"

url_length_max = 2048
tag_length_max = 40
title_length_max = 1024

tombstone_retention_days = 14

log_level = "debug"
log_file = "/tmp/bookmarksync.log"
log_format = "json"
`

	path := writeTestConfig(t, tomlContent)
	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/bookmarksync/state.db", cfg.Store.DBPath)

	assert.Equal(t, 2048, cfg.Limits.URLLengthMax)
	assert.Equal(t, 40, cfg.Limits.TagLengthMax)
	assert.Equal(t, 1024, cfg.Limits.TitleLengthMax)

	assert.Equal(t, 14, cfg.Finalize.TombstoneRetentionDays)

	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "/tmp/bookmarksync.log", cfg.Logging.LogFile)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
}

func TestLoad_MinimalConfig_UsesDefaults(t *testing.T) {
	path := writeTestConfig(t, "")
	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "bookmarksync.db", cfg.Store.DBPath)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, 21, cfg.Finalize.TombstoneRetentionDays)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeTestConfig(t, `[store
not valid toml`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml", testLogger(t))
	require.Error(t, err)
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeTestConfig(t, `log_level = "verbose"`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadOrDefault_FileExists(t *testing.T) {
	path := writeTestConfig(t, `log_level = "debug"`)
	cfg, err := LoadOrDefault(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
}

func TestLoadOrDefault_FileNotFound(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.toml", testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "bookmarksync.db", cfg.Store.DBPath)
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	path := writeTestConfig(t, `log_level = "warn"`)
	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.LogLevel)
	assert.Equal(t, 65536, cfg.Limits.URLLengthMax)
	assert.Equal(t, 21, cfg.Finalize.TombstoneRetentionDays)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeTestConfig(t, `log_lvel = "debug"`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "log_level"`)
}
