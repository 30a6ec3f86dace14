package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling begins long-polling for Telegram commands. Only messages from
// the configured chat are handled. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if update.Message.Chat == nil || update.Message.Chat.ID != t.chatID {
				t.logger.Warn().Msg("ignoring message from unknown chat")
				continue
			}
			text := strings.TrimSpace(update.Message.Text)
			t.logger.Info().Str("command", text).Msg("received command")
			if reply := handler(ctx, text); reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					t.logger.Error().Err(err).Msg("send reply")
				}
			}
		}
	}
}
