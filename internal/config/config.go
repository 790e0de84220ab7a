package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Tickers    []string `yaml:"tickers"`
	DataSource struct {
		Provider          string        `yaml:"provider"`
		PeriodDays        int           `yaml:"period_days"`
		Proxy             string        `yaml:"proxy"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Storage struct {
		Backend       string `yaml:"backend"`
		SQLitePath    string `yaml:"sqlite_path"`
		CSVDir        string `yaml:"csv_dir"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"storage"`
	Session struct {
		Cutover  string `yaml:"cutover"`
		Timezone string `yaml:"timezone"`
	} `yaml:"session"`
	Analysis struct {
		ConsolidationPct float64 `yaml:"consolidation_pct"`
		LookbackDays     int     `yaml:"lookback_days"`
		RiskDollars      float64 `yaml:"risk_dollars"`
		IntradayMinutes  int     `yaml:"intraday_minutes"`
	} `yaml:"analysis"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
}

// PathFromEnv returns CONFIG_PATH or the default location.
func PathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads an optional .env file and the YAML config at path, then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	setString("HTTPS_PROXY", &c.DataSource.Proxy)
	setString("DATA_PROVIDER", &c.DataSource.Provider)
	setString("STORAGE_BACKEND", &c.Storage.Backend)
	setString("SQLITE_PATH", &c.Storage.SQLitePath)
	setString("CSV_DIR", &c.Storage.CSVDir)
	setString("REDIS_ADDR", &c.Storage.RedisAddr)
	setString("REDIS_PASSWORD", &c.Storage.RedisPassword)
	setString("SESSION_TIMEZONE", &c.Session.Timezone)
	setString("CRON_REFRESH", &c.Schedule.RefreshCron)
	setString("LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("RISK_DOLLARS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Analysis.RiskDollars = f
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Storage.RedisDB = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.PeriodDays == 0 {
		c.DataSource.PeriodDays = 365
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 2
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 15 * time.Second
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/breakout_scanner.db"
	}
	if c.Storage.CSVDir == "" {
		c.Storage.CSVDir = "data/csv"
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = "localhost:6379"
	}
	if c.Session.Cutover == "" {
		c.Session.Cutover = "16:30"
	}
	if c.Analysis.ConsolidationPct == 0 {
		c.Analysis.ConsolidationPct = 2.5
	}
	if c.Analysis.LookbackDays == 0 {
		c.Analysis.LookbackDays = 15
	}
	if c.Analysis.RiskDollars == 0 {
		c.Analysis.RiskDollars = 100
	}
	if c.Analysis.IntradayMinutes == 0 {
		c.Analysis.IntradayMinutes = 2
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 0 23 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
}

// Validate checks value ranges. Telegram settings are only required by the daemon.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "finance-go", "mock":
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	switch c.Storage.Backend {
	case "sqlite", "csv", "redis", "memory":
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if c.DataSource.PeriodDays < 1 {
		return fmt.Errorf("data_source.period_days must be positive")
	}
	if c.DataSource.RequestsPerSecond < 0 {
		return fmt.Errorf("data_source.requests_per_second must not be negative")
	}
	if c.Analysis.ConsolidationPct < 0 {
		return fmt.Errorf("analysis.consolidation_pct must not be negative")
	}
	if c.Analysis.LookbackDays < 1 {
		return fmt.Errorf("analysis.lookback_days must be positive")
	}
	if c.Analysis.RiskDollars <= 0 {
		return fmt.Errorf("analysis.risk_dollars must be positive")
	}
	return nil
}

// ValidateTelegram checks the settings needed to deliver reports.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

// LoadTickerList returns the configured tickers in order, upper-cased and without
// duplicates. A whitespace separated TICKERS variable replaces the YAML list.
func LoadTickerList(cfg *Config) []string {
	raw := cfg.Tickers
	if v := os.Getenv("TICKERS"); strings.TrimSpace(v) != "" {
		raw = strings.Fields(v)
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
