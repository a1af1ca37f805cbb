package channels

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
	"trendwatch/internal/notify"
	"trendwatch/internal/ports"
)

// Telegram delivers the digest through a bot to a fixed chat.
type Telegram struct {
	bot    *tele.Bot
	chatID int64
}

var _ ports.Channel = (*Telegram)(nil)

// NewTelegram validates the credentials and builds the bot offline; the
// first network call happens on Send so startup never blocks on Telegram.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id %q is not numeric: %w", cfg.ChatID, err)
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.BotToken,
		Offline: true,
		Client:  newHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("build telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(_ context.Context, report domain.ReportData, reportType string) error {
	text := notify.FormatDigest(report, reportType)
	_, err := t.bot.Send(tele.ChatID(t.chatID), text, &tele.SendOptions{
		ParseMode:             tele.ModeMarkdown,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
