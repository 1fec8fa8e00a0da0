package trigger

import (
	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"gorm.io/datatypes"
)

// defaultRules is the rule set provisioned lazily for users with none.
func defaultRules(userID int64) []db.TriggerRule {
	return []db.TriggerRule{
		{
			UserID:             userID,
			EventType:          string(event.EmailOpened),
			TemplateKey:        "email_engagement",
			Priority:           100,
			CooldownSeconds:    3600,
			Condition:          datatypes.JSON(`{"requires_contact":true}`),
			MaxPerEntityPerDay: 2,
			TTLHours:           4,
			Enabled:            true,
		},
		{
			UserID:          userID,
			EventType:       string(event.ReminderDue),
			TemplateKey:     "followup_due",
			Priority:        80,
			CooldownSeconds: 1800,
			TTLHours:        24,
			Enabled:         true,
		},
		{
			UserID:          userID,
			EventType:       string(event.ReminderCompleted),
			TemplateKey:     "followup_completed",
			Priority:        60,
			CooldownSeconds: 3600,
			TTLHours:        12,
			Enabled:         true,
		},
		{
			UserID:          userID,
			EventType:       string(event.StreakIncremented),
			TemplateKey:     "streak_milestone",
			Priority:        40,
			CooldownSeconds: 86400,
			Condition:       datatypes.JSON(`{"min_streak":3}`),
			TTLHours:        48,
			Enabled:         true,
		},
	}
}

// rulesForEvent loads the user's enabled rules for one event type in
// priority order, provisioning the default set on first use.
func rulesForEvent(userID int64, eventType string) ([]db.TriggerRule, error) {
	var total int64
	if err := db.DB.Model(&db.TriggerRule{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, err
	}
	if total == 0 {
		rules := defaultRules(userID)
		if err := db.DB.Create(&rules).Error; err != nil {
			return nil, err
		}
	}

	var rules []db.TriggerRule
	err := db.DB.
		Where("user_id = ? AND event_type = ? AND enabled = ?", userID, eventType, true).
		Order("priority DESC, id ASC").
		Find(&rules).Error
	return rules, err
}
