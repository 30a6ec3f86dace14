package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	maxRetries uint64
	logger     zerolog.Logger
}

// NewTelegramNotifier authorizes the bot, with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse chat id: %w", err)
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 60 * time.Second, Transport: transport}
	return newTelegramNotifier(botToken, id, tgbotapi.APIEndpoint, client)
}

func newTelegramNotifier(botToken string, chatID int64, endpoint string, client *http.Client) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}
	logger := log.With().Str("component", "telegram").Logger()
	logger.Info().Str("username", bot.Self.UserName).Msg("authorized on Telegram")

	return &TelegramNotifier{bot: bot, chatID: chatID, maxRetries: 3, logger: logger}, nil
}

// Send delivers text to the configured chat, splitting long reports and
// retrying each part with exponential backoff.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := t.sendPart(ctx, t.chatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) sendPart(ctx context.Context, chatID int64, text string) error {
	attempt := 0
	operation := func() error {
		attempt++
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Warn().Err(err).Int("attempt", attempt).Msg("telegram send failed")
			return err
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), t.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return fmt.Errorf("telegram send after %d attempts: %w", attempt, err)
	}
	return nil
}
