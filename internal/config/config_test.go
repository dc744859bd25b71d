package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// clearEnv blanks every variable applyEnv reads so the shell can't leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TIINGO_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY",
		"SQLITE_PATH", "POSTGRES_DSN", "CRON_ANALYSIS", "LOG_LEVEL", "RUN_ON_START",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.MarketData.Provider)
	assert.Equal(t, 30, cfg.Analysis.PreDays)
	assert.Equal(t, 90, cfg.Analysis.PostDays)
	assert.Equal(t, "calendar", cfg.Analysis.WindowPolicy)
	assert.Equal(t, []string{"A", "B", "C", "D"}, cfg.USASpending.AwardTypeCodes)
	assert.Equal(t, "offline", cfg.Narrator.Provider)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "0 0 8 * * 1-5", cfg.Schedule.AnalysisCron)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
market_data:
  provider: tiingo
  tiingo_api_key: abc
  options: true
news:
  sentiment: true
analysis:
  pre_days: 10
  post_days: 20
  window_policy: trading
  workers: 4
watchlist:
  - symbol: " lmt "
    recipient: Lockheed Martin
narrator:
  provider: claude
  anthropic_api_key: sk-x
database:
  driver: none
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "tiingo", cfg.MarketData.Provider)
	assert.True(t, cfg.MarketData.Options)
	assert.True(t, cfg.News.Sentiment)
	assert.Equal(t, 10, cfg.Analysis.PreDays)
	assert.Equal(t, "trading", cfg.Analysis.WindowPolicy)
	require.Len(t, cfg.Watchlist, 1)
	assert.Equal(t, "LMT", cfg.Watchlist[0].Symbol)
	assert.Equal(t, "sk-x", cfg.NarratorAPIKey())
	assert.Empty(t, cfg.Narrator.GeminiAPIKey)
	assert.Empty(t, cfg.Proxy)
}

func TestLoad_ParseError(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIINGO_API_KEY", "env-tiingo")
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("POSTGRES_DSN", "host=localhost dbname=pulse")
	t.Setenv("CRON_ANALYSIS", "0 30 7 * * *")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("RUN_ON_START", "true")

	cfg, err := Load(writeConfig(t, "narrator:\n  provider: gemini\n"))
	require.NoError(t, err)

	assert.Equal(t, "env-tiingo", cfg.MarketData.TiingoAPIKey)
	assert.Equal(t, "env-gemini", cfg.NarratorAPIKey())
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "12345", cfg.Telegram.ChatID)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "0 30 7 * * *", cfg.Schedule.AnalysisCron)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true }, "telegram.bot_token is required"},
		{"bad cron", func(c *Config) { c.Schedule.AnalysisCron = "every monday" }, "schedule.analysis_cron: invalid cron expression"},
		{"unknown policy", func(c *Config) { c.Analysis.WindowPolicy = "weekly" }, "analysis.window_policy must be one of [calendar trading]"},
		{"watchlist recipient", func(c *Config) { c.Watchlist = []WatchItem{{Symbol: "LMT"}} }, "watchlist[0].recipient is required"},
		{"tiingo without key", func(c *Config) { c.MarketData.Provider = "tiingo" }, "market_data.tiingo_api_key is required"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, "database.postgres_dsn is required"},
		{"page limit", func(c *Config) { c.USASpending.PageLimit = 500 }, "usaspending.page_limit failed lte=100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDurations(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "30s", cfg.MarketTimeout().String())
	assert.Equal(t, "1h0m0s", cfg.CacheTTL().String())
	assert.Equal(t, "1m0s", cfg.NarratorTimeout().String())
}
