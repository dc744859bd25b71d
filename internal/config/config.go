package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"ContractPulse/internal/housetrades"
	"ContractPulse/internal/usaspending"
)

// WatchItem is one symbol analysed on schedule.
type WatchItem struct {
	Symbol    string `yaml:"symbol" validate:"required"`
	Recipient string `yaml:"recipient" validate:"required"`
}

// Config holds all application configuration.
type Config struct {
	MarketData struct {
		Provider        string `yaml:"provider" validate:"oneof=yahoo tiingo"`
		TiingoAPIKey    string `yaml:"tiingo_api_key" validate:"required_if=Provider tiingo"`
		TimeoutSeconds  int    `yaml:"timeout_seconds" validate:"gte=1"`
		RateLimit       int    `yaml:"rate_limit" validate:"gte=0"`
		CacheTTLMinutes int    `yaml:"cache_ttl_minutes" validate:"gte=0"`
		// Options adds a summary of the current Yahoo options chain.
		Options bool `yaml:"options"`
	} `yaml:"market_data"`
	USASpending struct {
		BaseURL        string   `yaml:"base_url" validate:"required,url"`
		AwardTypeCodes []string `yaml:"award_type_codes" validate:"min=1,dive,required"`
		PageLimit      int      `yaml:"page_limit" validate:"gte=1,lte=100"`
		MaxPages       int      `yaml:"max_pages" validate:"gte=1"`
		RateLimit      int      `yaml:"rate_limit" validate:"gte=0"`
		TimeoutSeconds int      `yaml:"timeout_seconds" validate:"gte=1"`
	} `yaml:"usaspending"`
	News struct {
		Enabled          bool `yaml:"enabled"`
		Limit            int  `yaml:"limit" validate:"gte=1,lte=1000"`
		FetchFullContent bool `yaml:"fetch_full_content"`
		Sentiment        bool `yaml:"sentiment"`
	} `yaml:"news"`
	HouseTrades struct {
		Enabled        bool   `yaml:"enabled"`
		URL            string `yaml:"url" validate:"required,url"`
		WindowDays     int    `yaml:"window_days" validate:"gte=1"`
		TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=1"`
	} `yaml:"house_trades"`
	Analysis struct {
		PreDays      int    `yaml:"pre_days" validate:"gte=1"`
		PostDays     int    `yaml:"post_days" validate:"gte=1"`
		WindowPolicy string `yaml:"window_policy" validate:"oneof=calendar trading"`
		Workers      int    `yaml:"workers" validate:"gte=1,lte=64"`
		LookbackDays int    `yaml:"lookback_days" validate:"gte=1"`
		TopN         int    `yaml:"top_n" validate:"gte=1,lte=50"`
	} `yaml:"analysis"`
	Watchlist []WatchItem `yaml:"watchlist" validate:"dive"`
	Narrator  struct {
		Provider        string  `yaml:"provider" validate:"oneof=gemini claude offline"`
		Model           string  `yaml:"model"`
		GeminiAPIKey    string  `yaml:"gemini_api_key"`
		AnthropicAPIKey string  `yaml:"anthropic_api_key"`
		Temperature     float32 `yaml:"temperature" validate:"gte=0,lte=2"`
		MaxTokens       int     `yaml:"max_tokens" validate:"gte=1"`
		MaxRetries      int     `yaml:"max_retries" validate:"gte=0,lte=10"`
		TimeoutSeconds  int     `yaml:"timeout_seconds" validate:"gte=1"`
	} `yaml:"narrator"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token" validate:"required_if=Enabled true"`
		ChatID   string `yaml:"chat_id" validate:"required_if=Enabled true"`
	} `yaml:"telegram"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron" validate:"required,cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		Driver      string `yaml:"driver" validate:"oneof=sqlite postgres none"`
		SQLitePath  string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
		PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Driver postgres"`
	} `yaml:"database"`
	State struct {
		File string `yaml:"file" validate:"required"`
	} `yaml:"state"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=text json"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy" validate:"omitempty,url"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults fill every unset field.
func Load(path string) (*Config, error) {
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
	if v := os.Getenv("TIINGO_API_KEY"); v != "" {
		c.MarketData.TiingoAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Narrator.GeminiAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Narrator.AnthropicAPIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Database.PostgresDSN = v
		if c.Database.Driver == "" {
			c.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("CRON_ANALYSIS"); v != "" {
		c.Schedule.AnalysisCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Schedule.RunOnStart = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.MarketData.Provider == "" {
		c.MarketData.Provider = "yahoo"
	}
	if c.MarketData.TimeoutSeconds == 0 {
		c.MarketData.TimeoutSeconds = 30
	}
	if c.MarketData.CacheTTLMinutes == 0 {
		c.MarketData.CacheTTLMinutes = 60
	}

	if c.USASpending.BaseURL == "" {
		c.USASpending.BaseURL = usaspending.DefaultBaseURL
	}
	if len(c.USASpending.AwardTypeCodes) == 0 {
		c.USASpending.AwardTypeCodes = append([]string(nil), usaspending.DefaultAwardTypeCodes...)
	}
	if c.USASpending.PageLimit == 0 {
		c.USASpending.PageLimit = usaspending.DefaultPageLimit
	}
	if c.USASpending.MaxPages == 0 {
		c.USASpending.MaxPages = usaspending.DefaultMaxPages
	}
	if c.USASpending.TimeoutSeconds == 0 {
		c.USASpending.TimeoutSeconds = 60
	}

	if c.News.Limit == 0 {
		c.News.Limit = 10
	}

	if c.HouseTrades.URL == "" {
		c.HouseTrades.URL = housetrades.DefaultURL
	}
	if c.HouseTrades.WindowDays == 0 {
		c.HouseTrades.WindowDays = 30
	}
	if c.HouseTrades.TimeoutSeconds == 0 {
		c.HouseTrades.TimeoutSeconds = 60
	}

	if c.Analysis.PreDays == 0 {
		c.Analysis.PreDays = 30
	}
	if c.Analysis.PostDays == 0 {
		c.Analysis.PostDays = 90
	}
	if c.Analysis.WindowPolicy == "" {
		c.Analysis.WindowPolicy = "calendar"
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 1
	}
	if c.Analysis.LookbackDays == 0 {
		c.Analysis.LookbackDays = 730
	}
	if c.Analysis.TopN == 0 {
		c.Analysis.TopN = 5
	}
	for i := range c.Watchlist {
		c.Watchlist[i].Symbol = strings.ToUpper(strings.TrimSpace(c.Watchlist[i].Symbol))
	}

	if c.Narrator.Provider == "" {
		c.Narrator.Provider = "offline"
	}
	if c.Narrator.Temperature == 0 {
		c.Narrator.Temperature = 0.3
	}
	if c.Narrator.MaxTokens == 0 {
		c.Narrator.MaxTokens = 1024
	}
	if c.Narrator.MaxRetries == 0 {
		c.Narrator.MaxRetries = 2
	}
	if c.Narrator.TimeoutSeconds == 0 {
		c.Narrator.TimeoutSeconds = 60
	}

	if c.Schedule.AnalysisCron == "" {
		c.Schedule.AnalysisCron = "0 0 8 * * 1-5"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/contractpulse.db"
	}
	if c.State.File == "" {
		c.State.File = "data/watch_state.json"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cronParser.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field constraints and reports every violation at once.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, field+" is required")
		case "cron":
			msgs = append(msgs, fmt.Sprintf("%s: invalid cron expression %q", field, fe.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// NarratorAPIKey returns the key of the configured narrator provider.
func (c *Config) NarratorAPIKey() string {
	switch c.Narrator.Provider {
	case "gemini":
		return c.Narrator.GeminiAPIKey
	case "claude":
		return c.Narrator.AnthropicAPIKey
	}
	return ""
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *Config) MarketTimeout() time.Duration      { return seconds(c.MarketData.TimeoutSeconds) }
func (c *Config) USASpendingTimeout() time.Duration { return seconds(c.USASpending.TimeoutSeconds) }
func (c *Config) HouseTradesTimeout() time.Duration { return seconds(c.HouseTrades.TimeoutSeconds) }
func (c *Config) NarratorTimeout() time.Duration    { return seconds(c.Narrator.TimeoutSeconds) }
func (c *Config) CacheTTL() time.Duration           { return time.Duration(c.MarketData.CacheTTLMinutes) * time.Minute }
