package prefs

import (
	"testing"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/internal/testutil"
	"gorm.io/datatypes"
)

func TestLoadProvisionsDefaults(t *testing.T) {
	testutil.SetupTestDB(t)

	prefs, err := Load(42)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if prefs.UserID != 42 {
		t.Fatalf("expected user 42, got %d", prefs.UserID)
	}
	if prefs.MaxRemindersPerDay != 10 {
		t.Fatalf("expected default daily cap 10, got %d", prefs.MaxRemindersPerDay)
	}
	if prefs.WorkStartHour != 9 || prefs.WorkEndHour != 18 {
		t.Fatalf("unexpected default working hours: %d-%d", prefs.WorkStartHour, prefs.WorkEndHour)
	}

	var count int64
	if err := db.DB.Model(&db.SchedulingPreferences{}).Where("user_id = ?", 42).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one provisioned row, got %d", count)
	}

	// Second access reuses the provisioned row.
	again, err := Load(42)
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if again.ID != prefs.ID {
		t.Fatalf("expected same row, got ids %d and %d", prefs.ID, again.ID)
	}
}

func TestSnoozeOptionEnabled(t *testing.T) {
	prefs := &db.SchedulingPreferences{
		UserID:        1,
		SnoozeOptions: datatypes.JSON(`["later_today","next_week"]`),
	}
	if !SnoozeOptionEnabled(prefs, "later_today") {
		t.Fatal("expected later_today enabled")
	}
	if SnoozeOptionEnabled(prefs, "in_3_days") {
		t.Fatal("expected in_3_days disabled")
	}
	// Empty set enables everything.
	if !SnoozeOptionEnabled(&db.SchedulingPreferences{UserID: 1}, "in_3_days") {
		t.Fatal("expected empty option set to enable all")
	}
}

func TestCategoryDisabled(t *testing.T) {
	prefs := &db.SchedulingPreferences{
		UserID:             1,
		DisabledCategories: datatypes.JSON(`["newsletter"]`),
	}
	if !CategoryDisabled(prefs, "newsletter") {
		t.Fatal("expected newsletter disabled")
	}
	if CategoryDisabled(prefs, "general") {
		t.Fatal("expected general enabled")
	}
}

func TestCacheTTLAndInvalidation(t *testing.T) {
	testutil.SetupTestDB(t)

	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(5*time.Minute, func() time.Time { return current })

	first := cache.Get(9)
	if first.MaxRemindersPerDay != 10 {
		t.Fatalf("expected provisioned defaults, got %+v", first)
	}

	// Mutate the row behind the cache's back; within TTL the stale value
	// is still served.
	if err := db.DB.Model(&db.SchedulingPreferences{}).Where("user_id = ?", 9).
		Update("max_reminders_per_day", 3).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got := cache.Get(9); got.MaxRemindersPerDay != 10 {
		t.Fatalf("expected cached value 10, got %d", got.MaxRemindersPerDay)
	}

	// Invalidation forces a reload.
	cache.Invalidate(9)
	if got := cache.Get(9); got.MaxRemindersPerDay != 3 {
		t.Fatalf("expected reloaded value 3, got %d", got.MaxRemindersPerDay)
	}

	// Expiry forces a reload too.
	if err := db.DB.Model(&db.SchedulingPreferences{}).Where("user_id = ?", 9).
		Update("max_reminders_per_day", 7).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}
	current = current.Add(6 * time.Minute)
	if got := cache.Get(9); got.MaxRemindersPerDay != 7 {
		t.Fatalf("expected expired entry reload 7, got %d", got.MaxRemindersPerDay)
	}
}
