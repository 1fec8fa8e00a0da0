// Package reminders drives the delivery loop: a minute ticker scans due
// reminders, runs each through the suppression evaluator, delivers the
// allowed ones and reschedules the rest. The status transition happens
// before delivery, so racing workers settle on the database row and a
// reminder is handed to a channel at most once.
package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/delivery"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/prefs"
	"github.com/mkravets/followup-reminder/pkg/snooze"
	"github.com/mkravets/followup-reminder/pkg/suppression"
	"github.com/mkravets/followup-reminder/pkg/trigger"
)

const (
	dueBatchLimit = 100
	// maxIgnoredDeliveries pauses a user's reminders after this many
	// consecutive deliveries with no engagement of any kind.
	maxIgnoredDeliveries = 3
)

type Pipeline struct {
	Sender delivery.Sender
	Prefs  *prefs.Cache
	Engine *trigger.Engine
	// Recipient resolves channel addressing; nil sends id-only.
	Recipient func(userID int64) delivery.Recipient
}

func StartReminderTicker(ctx context.Context, p *Pipeline, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.ProcessDue(ctx, now.UTC())
		}
	}
}

// ProcessDue handles one tick. Each reminder is independent; a failure
// on one never aborts the batch.
func (p *Pipeline) ProcessDue(ctx context.Context, now time.Time) {
	due, err := db.ListDueReminders(now, dueBatchLimit)
	if err != nil {
		logger.Error("failed to list due reminders", "error", err)
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		p.processReminder(ctx, &due[i], now)
	}
}

func (p *Pipeline) processReminder(ctx context.Context, reminder *db.Reminder, now time.Time) {
	preferences := p.Prefs.Get(reminder.UserID)

	decision, decisionEvent := suppression.EvaluateReminder(reminder, preferences, now)
	if !decision.Allowed {
		p.handleSuppressed(reminder, preferences, decision, now)
		p.offerToEngine(decisionEvent, now)
		return
	}

	// Claim the row before touching the channel. Losing the claim means
	// another worker owns this reminder.
	if err := db.MarkReminderStatus(reminder.ID, db.ReminderStatusSent, now); err != nil {
		if !errors.Is(err, db.ErrAlreadyProcessed) && !errors.Is(err, db.ErrReminderNotFound) {
			logger.Error("failed to claim reminder", "reminder_id", reminder.ID, "error", err)
		}
		return
	}

	if err := p.deliver(ctx, reminder); err != nil {
		logger.Error("failed to deliver reminder", "reminder_id", reminder.ID, "error", err)
		if err := db.DB.Model(&db.Reminder{}).Where("id = ?", reminder.ID).
			Update("status", db.ReminderStatusFailed).Error; err != nil {
			logger.Error("failed to record delivery failure", "reminder_id", reminder.ID, "error", err)
		}
		p.logOutcome(reminder, event.ReminderFailed, now)
		return
	}

	p.logOutcome(reminder, event.ReminderSent, now)
	p.offerToEngine(decisionEvent, now)
	p.pauseIfIgnored(reminder.UserID, preferences, now)
}

func (p *Pipeline) deliver(ctx context.Context, reminder *db.Reminder) error {
	recipient := delivery.Recipient{UserID: reminder.UserID}
	if p.Recipient != nil {
		recipient = p.Recipient(reminder.UserID)
	}
	return p.Sender.Send(ctx, recipient, delivery.Content{
		Subject:     "Follow-up reminder",
		Body:        reminder.Message,
		ReminderRef: reminder.ID,
	})
}

// handleSuppressed reschedules the reminder. Decisions that carry an
// explicit next attempt use it; drops fall back to the snooze ranker's
// top recommendation so a paused or disabled reminder stops refiring
// every tick.
func (p *Pipeline) handleSuppressed(reminder *db.Reminder, preferences *db.SchedulingPreferences, decision suppression.Decision, now time.Time) {
	until := decision.NextAttempt
	if until.IsZero() {
		for _, candidate := range snooze.Suggest(reminder, preferences, event.ReminderSuppressed, now) {
			if candidate.Recommended {
				until = candidate.FireAt
				break
			}
		}
	}
	if until.IsZero() {
		until = now.Add(24 * time.Hour)
	}
	if err := db.SnoozeReminder(reminder.ID, until, now); err != nil {
		logger.Error("failed to reschedule suppressed reminder",
			"reminder_id", reminder.ID, "error", err)
	}
}

func (p *Pipeline) logOutcome(reminder *db.Reminder, typ event.Type, now time.Time) {
	var payload interface{}
	if typ == event.ReminderSent {
		payload = &event.DeliveryPayload{
			Category:    reminder.Category,
			EvaluatedAt: now,
			Channel:     p.Sender.Name(),
		}
	}
	opts := []db.EventOption{db.WithReminder(reminder.ID), db.WithSource(reminder.Category)}
	if reminder.ContactID != nil {
		opts = append(opts, db.WithContact(*reminder.ContactID))
	}
	if _, err := db.AppendEvent(reminder.UserID, typ, now, payload, opts...); err != nil {
		logger.Error("failed to log delivery outcome", "reminder_id", reminder.ID, "error", err)
	}
}

func (p *Pipeline) offerToEngine(ev *db.Event, now time.Time) {
	if p.Engine == nil || ev == nil {
		return
	}
	if _, err := p.Engine.HandleEvent(ev, now); err != nil {
		logger.Error("failed to offer event to trigger engine", "event_id", ev.ID, "error", err)
	}
}

// pauseIfIgnored counts deliveries since the user last engaged with
// anything and flips the pause preference once the run gets long enough.
// The next evaluation then suppresses with PAUSED until the user returns.
func (p *Pipeline) pauseIfIgnored(userID int64, preferences *db.SchedulingPreferences, now time.Time) {
	if preferences.RemindersPaused {
		return
	}
	ignored, err := consecutiveIgnoredDeliveries(userID, now)
	if err != nil {
		logger.Error("failed to count ignored deliveries", "user_id", userID, "error", err)
		return
	}
	if ignored < maxIgnoredDeliveries {
		return
	}

	fresh, err := prefs.Load(userID)
	if err != nil {
		logger.Error("failed to load preferences for pause", "user_id", userID, "error", err)
		return
	}
	fresh.RemindersPaused = true
	if err := prefs.Save(fresh, p.Prefs); err != nil {
		logger.Error("failed to pause reminders", "user_id", userID, "error", err)
		return
	}
	logger.Info("paused reminders after ignored deliveries", "user_id", userID, "ignored", ignored)
}

// consecutiveIgnoredDeliveries counts reminder_sent events since the
// user's most recent engagement event. No engagement ever means every
// delivery counts.
func consecutiveIgnoredDeliveries(userID int64, now time.Time) (int64, error) {
	var lastEngaged time.Time
	var row db.Event
	err := db.DB.
		Where("user_id = ? AND type IN ?", userID, engagementTypeNames()).
		Order("occurred_at DESC, id DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID != 0 {
		lastEngaged = row.OccurredAt
	}

	return db.CountUserEvents(userID, []event.Type{event.ReminderSent}, lastEngaged, now.Add(time.Second))
}

func engagementTypeNames() []string {
	types := event.EngagementTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
