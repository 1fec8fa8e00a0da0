package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrInvalidPromptTransition = errors.New("invalid prompt status transition")

// promptTransitions is the canonical prompt state machine. acted,
// dismissed and expired are terminal.
var promptTransitions = map[string][]string{
	PromptStatusQueued:    {PromptStatusDisplayed, PromptStatusDismissed, PromptStatusExpired},
	PromptStatusDisplayed: {PromptStatusActed, PromptStatusDismissed, PromptStatusExpired},
}

// CreatePrompt inserts a prompt guarded by the source-event uniqueness
// constraint. A duplicate means another worker already created one for
// this event; that is reported as created=false, not an error.
func CreatePrompt(prompt *NotificationPrompt) (bool, error) {
	if err := DB.Create(prompt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PromptExistsForEvent is the cheap pre-check before template rendering;
// the unique constraint in CreatePrompt remains the authority.
func PromptExistsForEvent(sourceEventID uint) (bool, error) {
	var count int64
	err := DB.Model(&NotificationPrompt{}).
		Where("source_event_id = ?", sourceEventID).
		Count(&count).Error
	return count > 0, err
}

// UpdatePromptStatus applies one state-machine step. The update is
// conditional on the current status so concurrent transitions cannot
// both land.
func UpdatePromptStatus(id uint, from, to string, now time.Time) error {
	allowed := false
	for _, next := range promptTransitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidPromptTransition, from, to)
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	if to == PromptStatusDisplayed {
		updates["displayed_at"] = now
	}
	res := DB.Model(&NotificationPrompt{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: prompt %d no longer %s", ErrInvalidPromptTransition, id, from)
	}
	return nil
}

// LastDisplayedPrompt returns when this user most recently had any prompt
// displayed, for the engine's global cooldown. Zero time when none.
func LastDisplayedPrompt(userID int64) (time.Time, error) {
	var row NotificationPrompt
	err := DB.
		Where("user_id = ? AND displayed_at IS NOT NULL", userID).
		Order("displayed_at DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return time.Time{}, err
	}
	if row.DisplayedAt == nil {
		return time.Time{}, nil
	}
	return *row.DisplayedAt, nil
}

// LastPromptForRule returns the most recent prompt queued by this rule.
func LastPromptForRule(ruleID uint) (time.Time, error) {
	var row NotificationPrompt
	err := DB.
		Where("rule_id = ?", ruleID).
		Order("queued_at DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return time.Time{}, err
	}
	if row.ID == 0 {
		return time.Time{}, nil
	}
	return row.QueuedAt, nil
}

// CountPromptsForEntityToday counts prompts this rule queued today for
// one contact, for per-entity daily caps.
func CountPromptsForEntityToday(ruleID uint, contactID uint, now time.Time, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	var count int64
	err := DB.Model(&NotificationPrompt{}).
		Where("rule_id = ? AND contact_id = ? AND queued_at >= ? AND queued_at < ?",
			ruleID, contactID, dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC()).
		Count(&count).Error
	return count, err
}
