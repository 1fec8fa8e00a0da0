package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/reminders"
	"github.com/mkravets/followup-reminder/pkg/ui"
)

// HandleReminderCallback routes reminder button presses into the
// pipeline. Register it for the ui.CallbackPrefix prefix.
func HandleReminderCallback(p *reminders.Pipeline) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update == nil || update.CallbackQuery == nil {
			logger.Error("invalid update in HandleReminderCallback")
			return
		}
		query := update.CallbackQuery

		action, err := ui.ParseCallbackData(query.Data)
		if err != nil {
			logger.Error("bad reminder callback", "data", query.Data, "error", err)
			answer(ctx, b, query.ID, "This button no longer works.")
			return
		}

		text, err := applyReminderAction(p, action, time.Now().UTC())
		if err != nil {
			logger.Error("failed to apply reminder action",
				"reminder_id", action.ReminderID, "op", action.Op, "error", err)
			answer(ctx, b, query.ID, "Something went wrong. Please try again.")
			return
		}
		answer(ctx, b, query.ID, text)
	}
}

// applyReminderAction is the transport-free dispatch: one decoded button
// press in, the toast text out.
func applyReminderAction(p *reminders.Pipeline, action ui.Action, now time.Time) (string, error) {
	switch action.Op {
	case ui.OpComplete:
		if err := p.Complete(action.ReminderID, now); err != nil {
			return "", err
		}
		return "Marked as done.", nil
	case ui.OpSnooze:
		if err := p.Snooze(action.ReminderID, action.Option, now); err != nil {
			return "", err
		}
		return "Snoozed.", nil
	default:
		return "", ui.ErrUnknownOperation
	}
}

func answer(ctx context.Context, b *bot.Bot, queryID, text string) {
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	}); err != nil {
		logger.Error("failed to answer callback query", "error", err)
	}
}
