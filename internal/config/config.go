package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"SMCSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Symbols     []string          `yaml:"symbols"`
	Timeframes  []model.Timeframe `yaml:"timeframes"`
	CandleCount int               `yaml:"candle_count"`
	Workers     int               `yaml:"workers"`
	Telegram    struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider          string  `yaml:"provider"`
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		MaxRetries        uint64  `yaml:"max_retries"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"data_source"`
	Schedule struct {
		AnalysisCron       string `yaml:"analysis_cron"`
		NotifyOnChangeOnly bool   `yaml:"notify_on_change_only"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
		StateFile  string `yaml:"state_file"`
	} `yaml:"database"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Analysis model.AnalysisConfig `yaml:"analysis"`
	LogLevel string               `yaml:"log_level"`
	Proxy    string               `yaml:"proxy"`
}

// Load reads a .env file if present, then the YAML config, then applies
// environment variable overrides and defaults. The analysis block is merged
// over model.DefaultAnalysisConfig.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on process environment")
	}

	cfg := &Config{Analysis: model.DefaultAnalysisConfig()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = splitList(v)
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		cfg.Timeframes = nil
		for _, s := range splitList(v) {
			cfg.Timeframes = append(cfg.Timeframes, model.Timeframe(strings.ToUpper(s)))
		}
	}
	if v := os.Getenv("ANALYSIS_CRON"); v != "" {
		cfg.Schedule.AnalysisCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Defaults
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = []string{"EURUSD"}
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = []model.Timeframe{model.D1, model.H4, model.H1}
	}
	if cfg.CandleCount == 0 {
		cfg.CandleCount = 200
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.DataSource.Provider == "" {
		if cfg.DataSource.BaseURL != "" {
			cfg.DataSource.Provider = "rest"
		} else {
			cfg.DataSource.Provider = "yahoo"
		}
	}
	if cfg.DataSource.RequestsPerSecond == 0 {
		cfg.DataSource.RequestsPerSecond = 2
	}
	if cfg.DataSource.MaxRetries == 0 {
		cfg.DataSource.MaxRetries = 3
	}
	if cfg.DataSource.TimeoutSeconds == 0 {
		cfg.DataSource.TimeoutSeconds = 30
	}
	if cfg.Schedule.AnalysisCron == "" {
		cfg.Schedule.AnalysisCron = "0 5 * * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/smc_sentinel.db"
	}
	if cfg.Database.StateFile == "" {
		cfg.Database.StateFile = "data/bias_state.json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks the analysis block, the timeframe list and the
// data source and Telegram settings.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: at least one symbol is required", model.ErrConfiguration)
	}
	seen := make(map[model.Timeframe]bool, len(c.Timeframes))
	for _, tf := range c.Timeframes {
		if !tf.Valid() {
			return fmt.Errorf("%w: unknown timeframe %q", model.ErrConfiguration, tf)
		}
		if seen[tf] {
			return fmt.Errorf("%w: duplicate timeframe %q", model.ErrConfiguration, tf)
		}
		seen[tf] = true
	}
	if c.CandleCount < c.Analysis.MinBars {
		return fmt.Errorf("%w: candle_count %d is below analysis.min_bars %d",
			model.ErrConfiguration, c.CandleCount, c.Analysis.MinBars)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive", model.ErrConfiguration)
	}
	switch c.DataSource.Provider {
	case "yahoo":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("%w: data_source.base_url is required for the rest provider", model.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown data_source.provider %q", model.ErrConfiguration, c.DataSource.Provider)
	}
	if c.DataSource.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: data_source.requests_per_second must not be negative", model.ErrConfiguration)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("%w: telegram.bot_token and telegram.chat_id must be set together", model.ErrConfiguration)
	}
	return nil
}

// TelegramEnabled reports whether reports should go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
