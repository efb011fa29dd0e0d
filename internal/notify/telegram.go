// Package notify sends operator alerts to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxMessageRunes = 4000

type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID, log)
}

// NewTelegramWithEndpoint targets a custom Bot API endpoint, for example a
// self-hosted Bot API server. The format is the one of tgbotapi.APIEndpoint.
func NewTelegramWithEndpoint(token, endpoint string, chatID int64, log *slog.Logger) (*Telegram, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram alert chat id is required")
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

// Notify posts text to the alert chat. The Bot API client is not context
// aware, so ctx is only checked before sending.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, truncate(text))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	if t.log != nil {
		t.log.Debug("ops alert sent", "chat_id", t.chatID)
	}
	return nil
}

func truncate(text string) string {
	r := []rune(text)
	if len(r) <= maxMessageRunes {
		return text
	}
	return string(r[:maxMessageRunes]) + "…"
}
