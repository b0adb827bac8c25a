package notifysvc

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zachetka/backend/core"
)

// telegramNotifier posts operator notifications into a Telegram chat.
type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger core.Logger
}

var _ core.Notifier = (*telegramNotifier)(nil)

func NewTelegramNotifier(conf *core.Config, logger core.Logger) (core.Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(conf.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &telegramNotifier{bot: bot, chatID: conf.Telegram.ChatID, logger: logger}, nil
}

func (n *telegramNotifier) Notify(ctx context.Context, severity core.NotifySeverity, message string) {
	text := message
	if severity == core.NotifyError {
		text = "❗ " + message
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		n.logger.Error("telegram: sending notification", err)
	}
}
