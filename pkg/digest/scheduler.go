// Package digest runs the weekly batch: per tick it finds users whose
// local digest moment has arrived, applies the eligibility, idempotency
// and activity gates, computes weekly stats, selects a content variant
// and delivers with bounded retries. The job record's dedupe key makes
// repeated ticks within the same day harmless.
package digest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/schedule"
	"gorm.io/datatypes"

	"github.com/mkravets/followup-reminder/pkg/delivery"
)

const newUserGracePeriod = 7 * 24 * time.Hour

type Scheduler struct {
	Senders []delivery.Sender
	// Recipient resolves per-channel addressing for a user; nil falls
	// back to an id-only recipient (enough for the in-app channel).
	Recipient func(userID int64) delivery.Recipient
	// Backoff overrides the retry delays in tests.
	Backoff []time.Duration
}

// BatchSummary is what one tick reports back to its caller. Errors are
// per-user; one user's failure never aborts the tick.
type BatchSummary struct {
	Due     int
	Sent    int
	Failed  int
	Skipped int
	Errors  map[int64]error
}

// RunTick processes one scheduler invocation at the given instant.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) BatchSummary {
	summary := BatchSummary{Errors: make(map[int64]error)}

	users, err := db.ListDigestEnabledPreferences()
	if err != nil {
		logger.Error("failed to list digest users", "error", err)
		return summary
	}

	for i := range users {
		prefs := &users[i]
		window := schedule.FromPreferences(prefs)
		if !digestMomentDue(prefs, window.Location, now) {
			continue
		}
		summary.Due++

		status, err := s.processUser(ctx, prefs, window, now)
		if err != nil {
			summary.Errors[prefs.UserID] = err
			logger.Error("digest failed for user", "user_id", prefs.UserID, "error", err)
		}
		switch status {
		case outcomeSent:
			summary.Sent++
		case outcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}
	return summary
}

// digestMomentDue converts the tick instant into the user's local time
// and checks day, hour and a one-hour minute tolerance window that
// absorbs tick jitter.
func digestMomentDue(prefs *db.SchedulingPreferences, loc *time.Location, now time.Time) bool {
	local := now.In(loc)
	if int(local.Weekday()) != prefs.DigestDay {
		return false
	}
	if local.Hour() != prefs.DigestHour {
		return false
	}
	minute := local.Minute()
	return minute >= prefs.DigestMinute && minute < prefs.DigestMinute+60
}

// weekWindow anchors the digest week to the most recently completed
// Monday-to-Monday span in the user's location, keeping the dedupe key
// stable across repeated ticks.
func weekWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	daysSinceMonday := (int(local.Weekday()) - int(time.Monday) + 7) % 7
	thisMonday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, -daysSinceMonday)
	weekStart := thisMonday.AddDate(0, 0, -7)
	return weekStart, thisMonday
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

func (s *Scheduler) processUser(ctx context.Context, prefs *db.SchedulingPreferences, window schedule.Window, now time.Time) (outcome, error) {
	userID := prefs.UserID
	weekStart, weekEnd := weekWindow(now, window.Location)
	dedupeKey := db.DigestDedupeKey(userID, weekStart)

	// Eligibility gate: brand-new users with nothing to report skip
	// silently.
	reminderCount, err := db.CountRemindersForUser(userID)
	if err != nil {
		// Fail closed: skip rather than risk a duplicate or empty send.
		return outcomeSkipped, err
	}
	if reminderCount == 0 && now.Sub(prefs.CreatedAt) < newUserGracePeriod {
		return outcomeSkipped, nil
	}

	// Idempotency gate, checked before the expensive stats pass. The
	// unique constraint at insert time closes the remaining race.
	sent, err := db.HasSentDigest(dedupeKey)
	if err != nil {
		return outcomeSkipped, err
	}
	if sent {
		return outcomeSkipped, nil
	}

	// Activity gate.
	if prefs.DigestOnlyWhenActive {
		count, err := db.CountUserEvents(userID, nil, weekStart.UTC(), weekEnd.UTC())
		if err != nil {
			return outcomeSkipped, err
		}
		if count == 0 {
			return outcomeSkipped, nil
		}
	}

	stats, err := ComputeWeeklyStats(userID, weekStart.UTC(), weekEnd.UTC())
	if err != nil {
		return outcomeSkipped, err
	}
	variant := SelectVariant(stats, prefs.DigestDetail == "light")
	content := renderContent(variant, stats)

	recipient := delivery.Recipient{UserID: userID}
	if s.Recipient != nil {
		recipient = s.Recipient(userID)
	}

	retries, deliverErr := deliverWithRetry(ctx, s.Senders, recipient, content, s.Backoff)

	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return outcomeFailed, err
	}
	record := &db.DigestJobRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		WeekStart:  weekStart.UTC(),
		WeekEnd:    weekEnd.UTC(),
		DedupeKey:  dedupeKey,
		Variant:    variant,
		Stats:      datatypes.JSON(statsJSON),
		RetryCount: retries,
	}

	if deliverErr != nil {
		record.Status = db.DigestStatusFailed
		record.FailureReason = deliverErr.Error()
		if _, err := db.InsertDigestRecord(record); err != nil {
			return outcomeFailed, err
		}
		s.logOutcome(userID, event.DigestFailed, weekStart, variant, retries, deliverErr, now)
		return outcomeFailed, deliverErr
	}

	sentAt := now
	record.Status = db.DigestStatusSent
	record.SentAt = &sentAt
	inserted, err := db.InsertDigestRecord(record)
	if err != nil {
		return outcomeFailed, err
	}
	if !inserted {
		// Another worker committed this week first; ours becomes a
		// duplicate skip.
		return outcomeSkipped, nil
	}
	s.logOutcome(userID, event.DigestSent, weekStart, variant, retries, nil, now)
	return outcomeSent, nil
}

func (s *Scheduler) logOutcome(userID int64, typ event.Type, weekStart time.Time, variant string, retries int, deliverErr error, now time.Time) {
	payload := &event.DigestPayload{
		WeekStart: weekStart.UTC(),
		Variant:   variant,
		Retries:   retries,
	}
	if deliverErr != nil {
		payload.Error = deliverErr.Error()
	}
	if _, err := db.AppendEvent(userID, typ, now.UTC(), payload); err != nil {
		logger.Error("failed to log digest outcome", "user_id", userID, "error", err)
	}
}

// StartDigestTicker drives the scheduler off a wall-clock ticker; the
// external invocation cadence governs how often moments are checked.
func (s *Scheduler) StartDigestTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			summary := s.RunTick(ctx, now.UTC())
			if summary.Due > 0 {
				logger.Info("digest tick complete",
					"due", summary.Due, "sent", summary.Sent,
					"failed", summary.Failed, "skipped", summary.Skipped)
			}
		}
	}
}
