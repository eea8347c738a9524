package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "bookmarksync.db", cfg.Store.DBPath)

	assert.Equal(t, 65536, cfg.Limits.URLLengthMax)
	assert.Equal(t, 100, cfg.Limits.TagLengthMax)
	assert.Equal(t, 4096, cfg.Limits.TitleLengthMax)

	assert.Equal(t, 21, cfg.Finalize.TombstoneRetentionDays)

	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "", cfg.Logging.LogFile)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, Validate(cfg))
}
