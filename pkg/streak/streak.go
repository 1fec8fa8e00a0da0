// Package streak derives rolling consecutive-day completion streaks from
// the event log and re-injects streak transitions as new events, feeding
// them back through the trigger engine's dedupe and cooldown machinery.
package streak

import (
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/trigger"
)

const lookback = 365 * 24 * time.Hour

// FromActivityDays computes the streak from the set of distinct local
// calendar days with completions. The walk starts at today, or
// yesterday when today has no activity yet, and stops at the first gap.
func FromActivityDays(days map[string]bool, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	day := now.In(loc)
	if !days[dayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for days[dayKey(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Current recomputes the user's streak from reminder_completed events.
func Current(userID int64, now time.Time, loc *time.Location) (int, error) {
	if loc == nil {
		loc = time.UTC
	}
	events, err := db.ListUserEvents(userID, now.Add(-lookback), now.Add(24*time.Hour))
	if err != nil {
		return 0, err
	}
	days := make(map[string]bool)
	for i := range events {
		if events[i].Type == string(event.ReminderCompleted) {
			days[dayKey(events[i].OccurredAt.In(loc))] = true
		}
	}
	return FromActivityDays(days, now, loc), nil
}

// lastRecorded returns the streak value carried by the most recent
// streak transition event, zero when none exists.
func lastRecorded(userID int64, now time.Time) (int, error) {
	events, err := db.ListUserEvents(userID, now.Add(-lookback), now.Add(24*time.Hour))
	if err != nil {
		return 0, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		typ := event.Type(events[i].Type)
		if typ != event.StreakIncremented && typ != event.StreakBroken {
			continue
		}
		payload, err := events[i].DecodedPayload()
		if err != nil {
			continue
		}
		if p, ok := payload.(*event.StreakPayload); ok {
			return p.Current, nil
		}
	}
	return 0, nil
}

// Propagate recomputes the streak after a completion, classifies the
// transition against the previously recorded value, and logs increments
// and breaks as derived events. Increments are re-offered to the trigger
// engine as fresh source events.
func Propagate(userID int64, engine *trigger.Engine, now time.Time, loc *time.Location) error {
	current, err := Current(userID, now, loc)
	if err != nil {
		return err
	}
	previous, err := lastRecorded(userID, now)
	if err != nil {
		return err
	}
	if current == previous {
		return nil
	}

	typ := event.StreakIncremented
	if current < previous {
		typ = event.StreakBroken
	}
	derived, err := db.AppendEvent(userID, typ, now, &event.StreakPayload{
		Previous: previous,
		Current:  current,
	})
	if err != nil {
		return err
	}

	if typ == event.StreakIncremented && engine != nil {
		if _, err := engine.HandleEvent(derived, now); err != nil {
			logger.Error("failed to offer streak event to trigger engine", "user_id", userID, "error", err)
		}
	}
	return nil
}
