package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LISTEN_ADDR", "DATABASE_URL", "BROWSER_HEADLESS", "BROWSER_MAX_PAGES", "SETTLE_MS", "TIMEZONE", "LOG_FORMAT", "JOURNAL_RETENTION_HOURS"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 4, cfg.MaxPages)
	assert.Equal(t, 2*time.Second, cfg.Settle)
	assert.Equal(t, 50*time.Millisecond, cfg.KeyDelay)
	assert.Equal(t, 30*24*time.Hour, cfg.JournalRetention)
	assert.Equal(t, "Europe/Madrid", cfg.Location.String())
	assert.Equal(t, "checkAvailabilityALAKRAN", cfg.AvailabilityFunction)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_MAX_PAGES", "2")
	t.Setenv("SETTLE_MS", "0")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 2, cfg.MaxPages)
	assert.Zero(t, cfg.Settle)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestFromEnvReportsEveryBadValue(t *testing.T) {
	t.Setenv("BROWSER_HEADLESS", "sometimes")
	t.Setenv("BROWSER_MAX_PAGES", "0")
	t.Setenv("SETTLE_MS", "-5")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := FromEnv()
	require.Error(t, err)
	for _, k := range []string{"BROWSER_HEADLESS", "BROWSER_MAX_PAGES", "SETTLE_MS", "TIMEZONE", "LOG_FORMAT"} {
		assert.Contains(t, err.Error(), k)
	}
}
