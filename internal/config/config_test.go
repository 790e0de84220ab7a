package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
tickers: [nflx, AAPL, msft]
data_source:
  provider: finance-go
  period_days: 400
  timeout: 5s
storage:
  backend: csv
  csv_dir: /tmp/bars
session:
  cutover: "15:45"
  timezone: America/New_York
analysis:
  consolidation_pct: 3
  lookback_days: 10
telegram:
  bot_token: yaml-token
  chat_id: "42"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "finance-go", cfg.DataSource.Provider)
	assert.Equal(t, 400, cfg.DataSource.PeriodDays)
	assert.Equal(t, 5*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, "csv", cfg.Storage.Backend)
	assert.Equal(t, "15:45", cfg.Session.Cutover)
	assert.Equal(t, 3.0, cfg.Analysis.ConsolidationPct)

	assert.Equal(t, 100.0, cfg.Analysis.RiskDollars)
	assert.Equal(t, 2, cfg.Analysis.IntradayMinutes)
	assert.Equal(t, "0 0 23 * * 1-5", cfg.Schedule.RefreshCron)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateTelegram())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "16:30", cfg.Session.Cutover)
	assert.Equal(t, 15, cfg.Analysis.LookbackDays)
	require.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateTelegram())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RISK_DOLLARS", "250.5")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Storage.RedisDB)
	assert.Equal(t, 250.5, cfg.Analysis.RiskDollars)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "tickers: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"negative pct", func(c *Config) { c.Analysis.ConsolidationPct = -1 }},
		{"lookback", func(c *Config) { c.Analysis.LookbackDays = -2 }},
		{"risk", func(c *Config) { c.Analysis.RiskDollars = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadTickerList(t *testing.T) {
	cfg := &Config{Tickers: []string{"nflx", "AAPL", "NFLX", " msft "}}
	assert.Equal(t, []string{"NFLX", "AAPL", "MSFT"}, LoadTickerList(cfg))

	t.Setenv("TICKERS", "tsla  amd\ttsla")
	assert.Equal(t, []string{"TSLA", "AMD"}, LoadTickerList(cfg))
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, PathFromEnv())
	t.Setenv("CONFIG_PATH", "/etc/scanner.yaml")
	assert.Equal(t, "/etc/scanner.yaml", PathFromEnv())
}
