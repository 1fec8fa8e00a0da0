package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrAlreadyProcessed means the reminder left the deliverable state
	// before this caller's transition landed.
	ErrAlreadyProcessed = errors.New("reminder already processed")
)

// deliverableStatuses are the states a reminder can be delivered from.
// A snoozed reminder fires again at its new scheduled time.
var deliverableStatuses = []string{ReminderStatusPending, ReminderStatusSnoozed}

func GetReminder(id uint) (*Reminder, error) {
	var reminder Reminder
	if err := DB.First(&reminder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	return &reminder, nil
}

// MarkReminderStatus moves a deliverable reminder to sent or failed. The
// update is conditional on the row still being deliverable, so racing
// workers cannot both win: the loser gets ErrAlreadyProcessed.
func MarkReminderStatus(id uint, status string, now time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if status == ReminderStatusSent {
		updates["sent_at"] = now
	}
	res := DB.Model(&Reminder{}).
		Where("id = ? AND status IN ?", id, deliverableStatuses).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := DB.Model(&Reminder{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrReminderNotFound
		}
		return ErrAlreadyProcessed
	}
	return nil
}

// SnoozeReminder reschedules a deliverable reminder to a later time and
// marks it snoozed. Used both for explicit user snoozes and for
// suppression reschedules.
func SnoozeReminder(id uint, until time.Time, now time.Time) error {
	res := DB.Model(&Reminder{}).
		Where("id = ? AND status IN ?", id, deliverableStatuses).
		Updates(map[string]interface{}{
			"status":       ReminderStatusSnoozed,
			"scheduled_at": until,
			"snooze_count": gorm.Expr("snooze_count + 1"),
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

// ListDueReminders returns deliverable reminders whose scheduled time has
// passed, oldest first.
func ListDueReminders(now time.Time, limit int) ([]Reminder, error) {
	var due []Reminder
	query := DB.
		Where("status IN ? AND scheduled_at <= ?", deliverableStatuses, now).
		Order("scheduled_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&due).Error; err != nil {
		return nil, err
	}
	return due, nil
}

func CountRemindersForUser(userID int64) (int64, error) {
	var count int64
	err := DB.Model(&Reminder{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
