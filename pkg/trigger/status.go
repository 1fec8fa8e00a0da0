package trigger

import (
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/logger"
)

// CanonicalStatus collapses legacy external spellings onto the single
// internal enum. Unknown values pass through untouched so callers can
// reject them.
func CanonicalStatus(status string) string {
	switch status {
	case "shown", "seen":
		return db.PromptStatusDisplayed
	case "clicked":
		return db.PromptStatusActed
	default:
		return status
	}
}

// MarkDisplayed moves a queued prompt to displayed and logs it.
func MarkDisplayed(prompt *db.NotificationPrompt, now time.Time) error {
	if err := db.UpdatePromptStatus(prompt.ID, db.PromptStatusQueued, db.PromptStatusDisplayed, now); err != nil {
		return err
	}
	logLifecycle(prompt, event.PromptDisplayed, now)
	return nil
}

// MarkActed moves a displayed prompt to acted and logs the engagement.
func MarkActed(prompt *db.NotificationPrompt, now time.Time) error {
	if err := db.UpdatePromptStatus(prompt.ID, db.PromptStatusDisplayed, db.PromptStatusActed, now); err != nil {
		return err
	}
	logLifecycle(prompt, event.PromptActed, now)
	return nil
}

// MarkDismissed dismisses a prompt from either live state.
func MarkDismissed(prompt *db.NotificationPrompt, now time.Time) error {
	from := prompt.Status
	if from != db.PromptStatusQueued && from != db.PromptStatusDisplayed {
		from = db.PromptStatusQueued
	}
	if err := db.UpdatePromptStatus(prompt.ID, from, db.PromptStatusDismissed, now); err != nil {
		return err
	}
	logLifecycle(prompt, event.PromptDismissed, now)
	return nil
}

func logLifecycle(prompt *db.NotificationPrompt, typ event.Type, now time.Time) {
	if _, err := db.AppendEvent(prompt.UserID, typ, now, &event.PromptPayload{
		RuleID:   prompt.RuleID,
		PromptID: prompt.ID,
	}); err != nil {
		logger.Error("failed to log prompt lifecycle", "prompt_id", prompt.ID, "type", typ, "error", err)
	}
}
