// Package handlers is the Telegram surface: a reminder sender that attaches
// action buttons, and the callback handler that routes button presses
// back into the pipeline.
package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/mkravets/followup-reminder/pkg/delivery"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/prefs"
	"github.com/mkravets/followup-reminder/pkg/snooze"
	"github.com/mkravets/followup-reminder/pkg/ui"
)

// buttonOptions are the snooze choices offered inline. The full ranked
// list stays behind the pick flow; buttons carry only the common three.
var buttonOptions = []snooze.CandidateType{
	snooze.LaterToday,
	snooze.TomorrowMorning,
	snooze.NextWeek,
}

var buttonLabels = map[snooze.CandidateType]string{
	snooze.LaterToday:      "Later today",
	snooze.TomorrowMorning: "Tomorrow",
	snooze.NextWeek:        "Next week",
}

// ReminderSender delivers reminders to a Telegram chat with Done and
// snooze buttons attached. Digest and plain content falls through
// without a keyboard.
type ReminderSender struct {
	Bot   *bot.Bot
	Prefs *prefs.Cache
}

func (s *ReminderSender) Name() string { return "telegram" }

func (s *ReminderSender) Send(ctx context.Context, to delivery.Recipient, content delivery.Content) error {
	if to.ChatID == 0 {
		return fmt.Errorf("telegram send: no chat for user %d", to.UserID)
	}
	text := content.Body
	if content.Subject != "" {
		text = content.Subject + "\n\n" + content.Body
	}
	params := &bot.SendMessageParams{
		ChatID: to.ChatID,
		Text:   text,
	}
	if content.ReminderRef != 0 {
		params.ReplyMarkup = s.keyboard(to.UserID, content.ReminderRef)
	}
	if _, err := s.Bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (s *ReminderSender) keyboard(userID int64, reminderID uint) *models.InlineKeyboardMarkup {
	preferences := s.Prefs.Get(userID)

	var snoozeRow []models.InlineKeyboardButton
	for _, option := range buttonOptions {
		if !prefs.SnoozeOptionEnabled(preferences, string(option)) {
			continue
		}
		data, err := ui.BuildSnoozeCallback(reminderID, string(option))
		if err != nil {
			logger.Error("failed to build snooze callback", "reminder_id", reminderID, "error", err)
			continue
		}
		snoozeRow = append(snoozeRow, models.InlineKeyboardButton{
			Text:         buttonLabels[option],
			CallbackData: data,
		})
	}

	rows := make([][]models.InlineKeyboardButton, 0, 2)
	if done, err := ui.BuildCompleteCallback(reminderID); err == nil {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "Done", CallbackData: done},
		})
	}
	if len(snoozeRow) > 0 {
		rows = append(rows, snoozeRow)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
