package trigger

import (
	"encoding/json"
	"fmt"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"gorm.io/datatypes"
)

// Rendered is the output of a template: enough for the UI to show the
// prompt and drive its follow-up actions from the payload.
type Rendered struct {
	Title   string
	Message string
	Payload datatypes.JSON
}

type promptAction struct {
	EventType  string `json:"event_type"`
	ReminderID *uint  `json:"reminder_id,omitempty"`
	ContactID  *uint  `json:"contact_id,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// RenderTemplate is a pure function from (template key, source event) to
// prompt content.
func RenderTemplate(key string, ev *db.Event) (Rendered, error) {
	action := promptAction{
		EventType:  ev.Type,
		ReminderID: ev.ReminderID,
		ContactID:  ev.ContactID,
	}

	var title, message string
	switch key {
	case "followup_due":
		title = "Follow-up due"
		message = "A follow-up is due. Send it now or pick a better time."
		action.Suggestion = "open_reminder"
	case "followup_completed":
		title = "Nice work"
		message = "Follow-up done. Want to schedule the next touchpoint?"
		action.Suggestion = "schedule_next"
	case "followup_suppressed":
		title = "Reminder rescheduled"
		message = "We held a reminder back and picked a better time for it."
		action.Suggestion = "review_schedule"
	case "email_engagement":
		title = "Your email was opened"
		message = "Strike while the iron is hot: follow up now?"
		action.Suggestion = "followup_now"
	case "streak_milestone":
		title = "Streak extended"
		message = "You kept your follow-up streak going. Keep it up!"
		action.Suggestion = "view_streak"
	default:
		return Rendered{}, fmt.Errorf("unknown template key %q", key)
	}

	payload, err := json.Marshal(action)
	if err != nil {
		return Rendered{}, fmt.Errorf("render %s: %w", key, err)
	}
	return Rendered{Title: title, Message: message, Payload: datatypes.JSON(payload)}, nil
}

// templateKeyForEvent maps trigger-eligible event types to the default
// rule set's template keys.
func templateKeyForEvent(t event.Type) string {
	switch t {
	case event.ReminderDue:
		return "followup_due"
	case event.ReminderCompleted:
		return "followup_completed"
	case event.ReminderSuppressed:
		return "followup_suppressed"
	case event.EmailOpened:
		return "email_engagement"
	case event.StreakIncremented:
		return "streak_milestone"
	default:
		return ""
	}
}
