// Package prefs loads scheduling preferences, provisioning defaults on
// first access and serving read-mostly lookups through a short-TTL cache.
package prefs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var defaultSnoozeOptions = []string{
	"later_today", "tomorrow_morning", "next_working_day",
	"in_3_days", "next_week", "pick_a_time",
}

func defaultPreferences(userID int64) db.SchedulingPreferences {
	days, _ := json.Marshal([]int{1, 2, 3, 4, 5})
	options, _ := json.Marshal(defaultSnoozeOptions)
	return db.SchedulingPreferences{
		UserID:             userID,
		Timezone:           "UTC",
		WorkingDays:        datatypes.JSON(days),
		WorkStartHour:      9,
		WorkEndHour:        18,
		QuietHoursEnabled:  false,
		QuietStartHour:     22,
		QuietEndHour:       7,
		MaxRemindersPerDay: 10,
		CooldownMinutes:    60,
		SnoozeOptions:      datatypes.JSON(options),
		SmartSuggestions:   true,
		PromptsEnabled:     true,
		DigestEnabled:      true,
		DigestDay:          int(time.Monday),
		DigestHour:         8,
		DigestDetail:       "standard",
	}
}

// Load fetches a user's preferences, creating the default row on first
// access.
func Load(userID int64) (*db.SchedulingPreferences, error) {
	var prefs db.SchedulingPreferences
	err := db.DB.Where("user_id = ?", userID).First(&prefs).Error
	if err == nil {
		return &prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prefs = defaultPreferences(userID)
	if err := db.DB.Create(&prefs).Error; err != nil {
		// A concurrent first access may have created the row already.
		var existing db.SchedulingPreferences
		if lookupErr := db.DB.Where("user_id = ?", userID).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &prefs, nil
}

// Save persists updated preferences and invalidates any cache entry.
func Save(prefs *db.SchedulingPreferences, cache *Cache) error {
	if err := db.DB.Save(prefs).Error; err != nil {
		return err
	}
	if cache != nil {
		cache.Invalidate(prefs.UserID)
	}
	return nil
}

// SnoozeOptionEnabled checks the per-user enabled snooze option set. An
// empty or unreadable set means all options are enabled.
func SnoozeOptionEnabled(prefs *db.SchedulingPreferences, option string) bool {
	if prefs == nil || len(prefs.SnoozeOptions) == 0 {
		return true
	}
	var options []string
	if err := json.Unmarshal(prefs.SnoozeOptions, &options); err != nil {
		logger.Error("bad snooze options payload", "user_id", prefs.UserID, "error", err)
		return true
	}
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}

// CategoryDisabled checks the per-user disabled category set.
func CategoryDisabled(prefs *db.SchedulingPreferences, category string) bool {
	if prefs == nil || len(prefs.DisabledCategories) == 0 {
		return false
	}
	var categories []string
	if err := json.Unmarshal(prefs.DisabledCategories, &categories); err != nil {
		logger.Error("bad disabled categories payload", "user_id", prefs.UserID, "error", err)
		return false
	}
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
