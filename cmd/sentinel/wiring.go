package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"SMCSentinel/internal/collector"
	"SMCSentinel/internal/config"
	"SMCSentinel/internal/notifier"
	"SMCSentinel/internal/recorder"
)

func newFetcher(cfg *config.Config) collector.Fetcher {
	timeout := time.Duration(cfg.DataSource.TimeoutSeconds) * time.Second
	var base collector.Fetcher
	if cfg.DataSource.Provider == "rest" {
		base = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, timeout)
	} else {
		base = collector.NewYahooFetcher(cfg.Proxy, timeout)
	}
	log.Info().Str("source", base.Name()).Msg("data source selected")

	policy := collector.DefaultRetryPolicy()
	policy.RequestsPerSecond = cfg.DataSource.RequestsPerSecond
	policy.MaxRetries = cfg.DataSource.MaxRetries
	return collector.NewResilientFetcher(base, policy)
}

func newCollector(cfg *config.Config) *collector.Collector {
	return collector.NewCollector(newFetcher(cfg), cfg.Timeframes, cfg.CandleCount)
}

// newRecorder falls back to the no-op recorder when SQLite cannot be opened.
func newRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

// newNotifier returns the Telegram notifier when configured. The second
// result is nil when reports only go to the log.
func newNotifier(cfg *config.Config) (notifier.Notifier, *notifier.TelegramNotifier, error) {
	if !cfg.TelegramEnabled() {
		log.Info().Msg("telegram not configured, reports go to the log")
		return notifier.NewLogNotifier(), nil, nil
	}
	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if err != nil {
		return nil, nil, err
	}
	return tn, tn, nil
}
