// Package trigger turns qualifying events into at most one queued
// notification prompt per source event. Rules are evaluated highest
// priority first; the first rule passing every gate wins and evaluation
// stops.
package trigger

import (
	"time"

	"github.com/google/uuid"
	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/prefs"
	"github.com/mkravets/followup-reminder/pkg/schedule"
)

type Engine struct {
	Prefs *prefs.Cache
	// AllowFeature is the plan/entitlement gate; nil allows everyone.
	AllowFeature func(userID int64) bool
	// CurrentStreak feeds min_streak rule conditions; nil reads zero.
	CurrentStreak func(userID int64, now time.Time) int
}

// Winner reduces a priority-ordered rule list to the single first rule
// that passes every gate, or nil. Kept separate from the gates so the
// selection semantics are testable on their own.
func Winner(rules []db.TriggerRule, passes func(*db.TriggerRule) bool) *db.TriggerRule {
	for i := range rules {
		if passes(&rules[i]) {
			return &rules[i]
		}
	}
	return nil
}

// HandleEvent offers one event to the engine. The returned prompt is nil
// when no rule fired; a nil error with a nil prompt is the common
// "nothing to do" outcome.
func (e *Engine) HandleEvent(ev *db.Event, now time.Time) (*db.NotificationPrompt, error) {
	typ := event.Type(ev.Type)
	if !typ.TriggerEligible() {
		return nil, nil
	}

	preferences := e.Prefs.Get(ev.UserID)
	if !preferences.PromptsEnabled {
		return nil, nil
	}
	if e.AllowFeature != nil && !e.AllowFeature(ev.UserID) {
		return nil, nil
	}

	// Cheap dedupe pre-check; the unique constraint on insert remains
	// the authority. Fails closed.
	exists, err := db.PromptExistsForEvent(ev.ID)
	if err != nil {
		logger.Error("prompt dedupe pre-check failed, skipping", "event_id", ev.ID, "error", err)
		return nil, nil
	}
	if exists {
		return nil, nil
	}

	rules, err := rulesForEvent(ev.UserID, ev.Type)
	if err != nil {
		return nil, err
	}

	window := schedule.FromPreferences(preferences)
	streak := -1
	currentStreak := func() int {
		if streak < 0 {
			if e.CurrentStreak != nil {
				streak = e.CurrentStreak(ev.UserID, now)
			} else {
				streak = 0
			}
		}
		return streak
	}

	winner := Winner(rules, func(rule *db.TriggerRule) bool {
		cond := decodeCondition(rule)
		needsStreak := cond.MinStreak > 0
		s := 0
		if needsStreak {
			s = currentStreak()
		}
		if !conditionSatisfied(rule, ev, s) {
			return false
		}
		if !globalCooldownClear(ev.UserID, now) {
			return false
		}
		if !ruleCooldownClear(rule, now) {
			return false
		}
		return entityCapClear(rule, ev, now, window.Location)
	})
	if winner == nil {
		return nil, nil
	}

	rendered, err := RenderTemplate(winner.TemplateKey, ev)
	if err != nil {
		return nil, err
	}

	prompt := &db.NotificationPrompt{
		UserID:        ev.UserID,
		ReminderID:    ev.ReminderID,
		ContactID:     ev.ContactID,
		RuleID:        winner.ID,
		SourceEventID: ev.ID,
		Title:         rendered.Title,
		Message:       rendered.Message,
		Priority:      winner.Priority,
		Status:        db.PromptStatusQueued,
		Token:         uuid.NewString(),
		Payload:       rendered.Payload,
		QueuedAt:      now,
		ExpiresAt:     now.Add(time.Duration(winner.TTLHours) * time.Hour),
	}
	created, err := db.CreatePrompt(prompt)
	if err != nil {
		return nil, err
	}
	if !created {
		// Another worker got there first.
		return nil, nil
	}

	if _, err := db.AppendEvent(ev.UserID, event.PromptQueued, now, &event.PromptPayload{
		RuleID:      winner.ID,
		TemplateKey: winner.TemplateKey,
		PromptID:    prompt.ID,
	}); err != nil {
		logger.Error("failed to log queued prompt", "prompt_id", prompt.ID, "error", err)
	}
	return prompt, nil
}
