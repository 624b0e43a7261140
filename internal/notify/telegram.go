package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram delivers notifications to a single caregiver chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegram authenticates against the Bot API. The account lookup in
// NewBotAPI doubles as a token check at startup.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	api.Debug = false

	logger.Info("Telegram sink ready",
		zap.String("account", api.Self.UserName),
		zap.Int64("chat_id", chatID))

	return &Telegram{api: api, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) Send(ctx context.Context, event Event) error {
	msg := tgbotapi.NewMessage(t.chatID, event.Title+"\n"+event.Body)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
