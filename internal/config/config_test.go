package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	boterrors "github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{"symbols": ["btcusdt", "ethusdt"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	assert.Equal(t, 100000.0, cfg.InitialCapital)
	assert.Equal(t, 0.05, cfg.Risk.MaxPositionFraction)
	assert.Equal(t, 0.02, cfg.Risk.MaxDailyLoss)
	assert.Equal(t, 0.03, cfg.Risk.StopLossPct)
	assert.Equal(t, 0.06, cfg.Risk.TakeProfitPct)
	assert.Equal(t, 10, cfg.Risk.MaxOpenPositions)
	assert.Equal(t, 1.5, cfg.Risk.MinRiskReward)
	assert.Equal(t, 0.15, cfg.Risk.MaxExposure)
	assert.Equal(t, 7*24*time.Hour, cfg.Risk.MaxHoldingTime.Std())
	assert.Equal(t, 300*time.Second, cfg.Runtime.UpdateInterval.Std())
	assert.Equal(t, 14, cfg.Signal.RSI.Period)
	assert.Equal(t, 3.0, cfg.Whale.VolumeSpikeMultiplier)
	assert.Len(t, cfg.Whale.TargetInstitutions, len(DefaultTargetInstitutions))
}

func TestParse_Durations(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"symbols": ["AAPL"],
		"runtime": {"update_interval": "1m", "fetch_timeout": 5}
	}`))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Runtime.UpdateInterval.Std())
	assert.Equal(t, 5*time.Second, cfg.Runtime.FetchTimeout.Std())
}

func TestValidate_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		msg    string
	}{
		{"no symbols", func(c *Config) { c.Symbols = nil }, "at least one symbol"},
		{"duplicate symbol", func(c *Config) { c.Symbols = []string{"AAPL", "AAPL"} }, "duplicate symbol"},
		{"stop above take profit", func(c *Config) { c.Risk.StopLossPct = 0.08 }, "must be below take profit"},
		{"fraction above one", func(c *Config) { c.Risk.MaxPositionFraction = 1.5 }, "max_position_fraction"},
		{"negative daily loss", func(c *Config) { c.Risk.MaxDailyLoss = -0.1 }, "max_daily_loss"},
		{"poor configured ratio", func(c *Config) { c.Risk.TakeProfitPct = 0.04 }, "below min risk/reward"},
		{"timeout longer than interval", func(c *Config) { c.Runtime.FetchTimeout = Duration(time.Hour) }, "fetch timeout"},
		{"unknown feed", func(c *Config) { c.Feed.Source = "carrier-pigeon" }, "unknown feed source"},
		{"csv without dir", func(c *Config) { c.Feed.Source = "csv" }, "data_dir"},
		{"bad rsi", func(c *Config) { c.Signal.RSI.Oversold = 80 }, "RSI thresholds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Symbols = []string{"AAPL"}
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryConfiguration))
		})
	}
}

func TestLoad_ResolvesConfigsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "stocks.json"),
		[]byte(`{"symbols": ["MSFT"], "initial_capital": 50000}`), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load("stocks")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, cfg.InitialCapital)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SYMBOLS", "aapl, msft")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Symbols)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	require.NotNil(t, cfg.Notifications)
	assert.True(t, cfg.Notifications.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WHALE_TRACKER_TEST_VAR=loaded\n"), 0644))
	t.Setenv("WHALE_TRACKER_TEST_VAR", "")
	os.Unsetenv("WHALE_TRACKER_TEST_VAR")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("WHALE_TRACKER_TEST_VAR"))

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
