package delivery

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// TelegramSender delivers through a Telegram chat. The bot client is
// shared with the rest of the process.
type TelegramSender struct {
	Bot *bot.Bot
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Send(ctx context.Context, to Recipient, content Content) error {
	if to.ChatID == 0 {
		return fmt.Errorf("telegram send: no chat for user %d", to.UserID)
	}
	text := content.Body
	if content.Subject != "" {
		text = content.Subject + "\n\n" + content.Body
	}
	_, err := s.Bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: to.ChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
