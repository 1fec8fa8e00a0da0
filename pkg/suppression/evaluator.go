// Package suppression decides whether a due reminder may be delivered
// now, and when to try again if not. The precedence below is fixed and
// terminal: the first matching rule decides.
//
//  1. paused or category disabled  -> dropped, no reschedule
//  2. quiet hours                  -> retry at quiet end
//  3. outside working window       -> retry at next working start
//  4. daily cap reached            -> retry next working day
//  5. cooldown active              -> retry at cooldown expiry, clamped
package suppression

import (
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/prefs"
	"github.com/mkravets/followup-reminder/pkg/schedule"
)

type Reason string

const (
	ReasonPaused           Reason = "PAUSED"
	ReasonCategoryDisabled Reason = "CATEGORY_DISABLED"
	ReasonQuietHours       Reason = "QUIET_HOURS"
	ReasonWorkdayDisabled  Reason = "WORKDAY_DISABLED"
	ReasonDailyCap         Reason = "DAILY_CAP"
	ReasonCooldown         Reason = "COOLDOWN"
)

// History is the snapshot of event-log state the evaluator consumes.
// Callers assemble it so Evaluate stays a pure function.
type History struct {
	DeliveredToday int64
	// LastDelivery is the most recent delivery to the same contact, or
	// the same category when the reminder has no contact. Nil if none.
	LastDelivery *time.Time
}

type Decision struct {
	Allowed bool
	Reason  Reason
	// NextAttempt is zero for allowed decisions and for drops.
	NextAttempt time.Time
}

// Evaluate applies the precedence order at evaluation time. Identical
// inputs always produce identical decisions.
func Evaluate(reminder *db.Reminder, preferences *db.SchedulingPreferences, history History, at time.Time) Decision {
	if preferences.RemindersPaused {
		return Decision{Reason: ReasonPaused}
	}
	if prefs.CategoryDisabled(preferences, reminder.Category) {
		return Decision{Reason: ReasonCategoryDisabled}
	}

	window := schedule.FromPreferences(preferences)

	if window.InQuietHours(at) {
		return Decision{Reason: ReasonQuietHours, NextAttempt: window.QuietEnd(at)}
	}

	if !window.InWorkingHours(at) {
		return Decision{Reason: ReasonWorkdayDisabled, NextAttempt: window.NextWorkingStart(at)}
	}

	if preferences.MaxRemindersPerDay > 0 && history.DeliveredToday >= int64(preferences.MaxRemindersPerDay) {
		local := at.In(window.Location)
		tomorrow := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, window.Location).AddDate(0, 0, 1)
		return Decision{Reason: ReasonDailyCap, NextAttempt: window.NextWorkingStart(tomorrow)}
	}

	if preferences.CooldownMinutes > 0 && history.LastDelivery != nil {
		cooldown := time.Duration(preferences.CooldownMinutes) * time.Minute
		expiry := history.LastDelivery.Add(cooldown)
		if at.Before(expiry) {
			next, _ := window.Adjust(expiry)
			return Decision{Reason: ReasonCooldown, NextAttempt: next}
		}
	}

	return Decision{Allowed: true}
}

// EvaluateReminder loads the history snapshot, evaluates, and appends the
// decision to the event log. History lookups fail open: an event-log
// error degrades to an empty snapshot rather than blocking delivery.
// The returned event is the logged decision row, nil when logging failed.
func EvaluateReminder(reminder *db.Reminder, preferences *db.SchedulingPreferences, at time.Time) (Decision, *db.Event) {
	window := schedule.FromPreferences(preferences)

	history := History{}
	delivered, err := db.CountDeliveredToday(reminder.UserID, at, window.Location)
	if err != nil {
		logger.Error("failed to count deliveries, assuming zero", "user_id", reminder.UserID, "error", err)
	} else {
		history.DeliveredToday = delivered
	}
	last, err := db.LastDelivery(reminder.UserID, reminder.ContactID, reminder.Category, at)
	if err != nil {
		logger.Error("failed to look up last delivery", "user_id", reminder.UserID, "error", err)
	} else if last != nil {
		history.LastDelivery = &last.OccurredAt
	}

	decision := Evaluate(reminder, preferences, history, at)
	return decision, logDecision(reminder, decision, at)
}

func logDecision(reminder *db.Reminder, decision Decision, at time.Time) *db.Event {
	var row *db.Event
	var err error
	if decision.Allowed {
		row, err = db.AppendEvent(reminder.UserID, event.ReminderDue, at,
			&event.DeliveryPayload{Category: reminder.Category, EvaluatedAt: at},
			db.WithReminder(reminder.ID), db.WithSource(reminder.Category))
	} else {
		payload := &event.SuppressionPayload{
			Reason:      string(decision.Reason),
			EvaluatedAt: at,
		}
		if !decision.NextAttempt.IsZero() {
			payload.NextAttempt = decision.NextAttempt
		}
		row, err = db.AppendEvent(reminder.UserID, event.ReminderSuppressed, at, payload,
			db.WithReminder(reminder.ID), db.WithSource(reminder.Category))
	}
	if err != nil {
		logger.Error("failed to log suppression decision", "reminder_id", reminder.ID, "error", err)
		return nil
	}
	return row
}
