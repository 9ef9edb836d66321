package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers the pipeline's operational alerts: verification run
// failures and summaries, and jobs dropped after exhausting their retries.
type Notifier interface {
	SendMessage(text string) error
}

// botNotifier sends alerts through the Telegram Bot API.
type botNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient authenticates against the Bot API and returns a notifier bound
// to a single chat.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &botNotifier{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// SendMessage posts one markdown-formatted alert to the configured chat.
func (n *botNotifier) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := n.bot.Send(msg)
	return err
}
