package snooze

import (
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/prefs"
	"github.com/mkravets/followup-reminder/pkg/schedule"
)

const historyLookback = 30 * 24 * time.Hour

// Suggest produces the ranked candidate list for a reminder and logs the
// batch to the event log for engagement analysis. trigger is the event
// type that prompted the suggestion, zero-valued when none. History
// lookups fail open to an empty score context.
func Suggest(reminder *db.Reminder, preferences *db.SchedulingPreferences, trigger event.Type, now time.Time) []Candidate {
	window := schedule.FromPreferences(preferences)

	sctx := ScoreContext{
		EngagementSignal: trigger.Engagement(),
		MaxPerDay:        preferences.MaxRemindersPerDay,
	}
	if avg, err := averageSnoozeHours(reminder.UserID, now); err != nil {
		logger.Error("failed to compute snooze history", "user_id", reminder.UserID, "error", err)
	} else {
		sctx.AvgSnoozeHours = avg
	}
	if delivered, err := db.CountDeliveredToday(reminder.UserID, now, window.Location); err != nil {
		logger.Error("failed to count deliveries", "user_id", reminder.UserID, "error", err)
	} else {
		sctx.DeliveredToday = delivered
	}

	enabled := func(option string) bool {
		return prefs.SnoozeOptionEnabled(preferences, option)
	}
	candidates := Rank(now, window, sctx, enabled)

	logSuggestions(reminder, candidates, now)
	return candidates
}

// averageSnoozeHours is the rolling mean of the user's recent snooze
// durations, read back from reminder_snoozed event payloads.
func averageSnoozeHours(userID int64, now time.Time) (float64, error) {
	events, err := db.ListUserEvents(userID, now.Add(-historyLookback), now)
	if err != nil {
		return 0, err
	}
	var total float64
	var count int
	for i := range events {
		if events[i].Type != string(event.ReminderSnoozed) {
			continue
		}
		payload, err := events[i].DecodedPayload()
		if err != nil {
			continue
		}
		if snooze, ok := payload.(*event.SnoozePayload); ok && snooze.DurationHrs > 0 {
			total += snooze.DurationHrs
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return total / float64(count), nil
}

func logSuggestions(reminder *db.Reminder, candidates []Candidate, now time.Time) {
	payload := &event.SnoozeSuggestionPayload{}
	for _, c := range candidates {
		payload.Candidates = append(payload.Candidates, event.SuggestedCandidate{
			Type:     string(c.Type),
			FireAt:   c.FireAt,
			Score:    c.Score,
			Adjusted: c.Adjusted,
		})
	}
	if _, err := db.AppendEvent(reminder.UserID, event.SnoozeSuggested, now, payload,
		db.WithReminder(reminder.ID), db.WithSource(reminder.Category)); err != nil {
		logger.Error("failed to log snooze suggestions", "reminder_id", reminder.ID, "error", err)
	}
}

// Apply records a chosen candidate: the reminder is rescheduled and the
// snooze is appended to the event log so future scoring can learn from
// its duration.
func Apply(reminder *db.Reminder, candidate Candidate, now time.Time) error {
	if err := db.SnoozeReminder(reminder.ID, candidate.FireAt, now); err != nil {
		return err
	}
	payload := &event.SnoozePayload{
		Until:       candidate.FireAt,
		Option:      string(candidate.Type),
		DurationHrs: candidate.FireAt.Sub(now).Hours(),
	}
	if _, err := db.AppendEvent(reminder.UserID, event.ReminderSnoozed, now, payload,
		db.WithReminder(reminder.ID), db.WithSource(reminder.Category)); err != nil {
		logger.Error("failed to log snooze", "reminder_id", reminder.ID, "error", err)
	}
	return nil
}
