package reminders

import (
	"errors"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/prefs"
	"github.com/mkravets/followup-reminder/pkg/schedule"
	"github.com/mkravets/followup-reminder/pkg/snooze"
	"github.com/mkravets/followup-reminder/pkg/streak"
)

var ErrUnknownSnoozeOption = errors.New("unknown or disabled snooze option")

// Complete records that the user finished the follow-up. Completion is an
// event, not a reminder status: the delivery transition already happened
// when the reminder went out.
func (p *Pipeline) Complete(reminderID uint, now time.Time) error {
	reminder, err := db.GetReminder(reminderID)
	if err != nil {
		return err
	}

	opts := []db.EventOption{db.WithReminder(reminder.ID), db.WithSource(reminder.Category)}
	if reminder.ContactID != nil {
		opts = append(opts, db.WithContact(*reminder.ContactID))
	}
	completed, err := db.AppendEvent(reminder.UserID, event.ReminderCompleted, now, nil, opts...)
	if err != nil {
		return err
	}

	p.resumeIfPaused(reminder.UserID)
	p.offerToEngine(completed, now)

	window := schedule.FromPreferences(p.Prefs.Get(reminder.UserID))
	if err := streak.Propagate(reminder.UserID, p.Engine, now, window.Location); err != nil {
		logger.Error("failed to propagate streak", "user_id", reminder.UserID, "error", err)
	}
	return nil
}

// Snooze applies a previously suggested candidate by type on behalf of
// the user.
func (p *Pipeline) Snooze(reminderID uint, option string, now time.Time) error {
	reminder, err := db.GetReminder(reminderID)
	if err != nil {
		return err
	}
	preferences := p.Prefs.Get(reminder.UserID)

	candidates := snooze.Suggest(reminder, preferences, event.ReminderDue, now)
	for _, candidate := range candidates {
		if candidate.Type == snooze.PickATime {
			// Needs an explicit time; see SnoozeUntil.
			continue
		}
		if string(candidate.Type) == option {
			p.resumeIfPaused(reminder.UserID)
			return snooze.Apply(reminder, candidate, now)
		}
	}
	return ErrUnknownSnoozeOption
}

// SnoozeUntil is the pick_a_time path: the user supplies the moment and
// it is applied as-is, without window adjustment.
func (p *Pipeline) SnoozeUntil(reminderID uint, until, now time.Time) error {
	reminder, err := db.GetReminder(reminderID)
	if err != nil {
		return err
	}
	preferences := p.Prefs.Get(reminder.UserID)
	if !prefs.SnoozeOptionEnabled(preferences, string(snooze.PickATime)) {
		return ErrUnknownSnoozeOption
	}
	p.resumeIfPaused(reminder.UserID)
	return snooze.Apply(reminder, snooze.Candidate{
		Type:   snooze.PickATime,
		FireAt: until,
	}, now)
}

// resumeIfPaused lifts the inactivity pause on any engagement.
func (p *Pipeline) resumeIfPaused(userID int64) {
	preferences := p.Prefs.Get(userID)
	if !preferences.RemindersPaused {
		return
	}
	fresh, err := prefs.Load(userID)
	if err != nil {
		logger.Error("failed to load preferences for resume", "user_id", userID, "error", err)
		return
	}
	fresh.RemindersPaused = false
	if err := prefs.Save(fresh, p.Prefs); err != nil {
		logger.Error("failed to resume reminders", "user_id", userID, "error", err)
		return
	}
	logger.Info("resumed reminders after engagement", "user_id", userID)
}
