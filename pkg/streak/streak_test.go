package streak

import (
	"testing"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/internal/testutil"
	"github.com/mkravets/followup-reminder/pkg/prefs"
	"github.com/mkravets/followup-reminder/pkg/trigger"
)

func TestFromActivityDays(t *testing.T) {
	now := time.Date(2025, 1, 8, 15, 0, 0, 0, time.UTC)

	days := map[string]bool{
		"2025-01-08": true,
		"2025-01-07": true,
		"2025-01-06": true,
		// gap on the 5th
		"2025-01-04": true,
	}
	if got := FromActivityDays(days, now, time.UTC); got != 3 {
		t.Fatalf("expected streak 3, got %d", got)
	}
}

func TestFromActivityDaysStartsYesterdayWhenTodayEmpty(t *testing.T) {
	now := time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)

	days := map[string]bool{
		"2025-01-07": true,
		"2025-01-06": true,
	}
	if got := FromActivityDays(days, now, time.UTC); got != 2 {
		t.Fatalf("expected streak 2, got %d", got)
	}
}

func TestFromActivityDaysZeroOnGap(t *testing.T) {
	now := time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)

	days := map[string]bool{"2025-01-05": true}
	if got := FromActivityDays(days, now, time.UTC); got != 0 {
		t.Fatalf("expected streak 0, got %d", got)
	}
}

func completeOn(t *testing.T, userID int64, at time.Time) {
	t.Helper()
	if _, err := db.AppendEvent(userID, event.ReminderCompleted, at, nil); err != nil {
		t.Fatalf("failed to append completion: %v", err)
	}
}

func TestCurrentReadsEventLog(t *testing.T) {
	testutil.SetupTestDB(t)

	now := time.Date(2025, 1, 8, 15, 0, 0, 0, time.UTC)
	completeOn(t, 1, now.Add(-48*time.Hour))
	completeOn(t, 1, now.Add(-24*time.Hour))
	completeOn(t, 1, now)

	got, err := Current(1, now, time.UTC)
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected streak 3, got %d", got)
	}
}

func TestPropagateLogsIncrementAndBreak(t *testing.T) {
	testutil.SetupTestDB(t)
	engine := &trigger.Engine{Prefs: prefs.NewCache(time.Minute, nil)}

	now := time.Date(2025, 1, 8, 15, 0, 0, 0, time.UTC)
	completeOn(t, 2, now.Add(-24*time.Hour))
	completeOn(t, 2, now)

	if err := Propagate(2, engine, now, time.UTC); err != nil {
		t.Fatalf("Propagate returned error: %v", err)
	}

	var increments []db.Event
	if err := db.DB.Where("user_id = ? AND type = ?", 2, string(event.StreakIncremented)).Find(&increments).Error; err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(increments) != 1 {
		t.Fatalf("expected one increment event, got %d", len(increments))
	}
	payload, err := increments[0].DecodedPayload()
	if err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if p := payload.(*event.StreakPayload); p.Previous != 0 || p.Current != 2 {
		t.Fatalf("unexpected transition %+v", p)
	}

	// Days later with no completions the streak is zero: a break.
	later := now.AddDate(0, 0, 5)
	if err := Propagate(2, engine, later, time.UTC); err != nil {
		t.Fatalf("Propagate returned error: %v", err)
	}
	var breaks []db.Event
	if err := db.DB.Where("user_id = ? AND type = ?", 2, string(event.StreakBroken)).Find(&breaks).Error; err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(breaks) != 1 {
		t.Fatalf("expected one break event, got %d", len(breaks))
	}

	// Unchanged streak appends nothing new.
	if err := Propagate(2, engine, later, time.UTC); err != nil {
		t.Fatalf("Propagate returned error: %v", err)
	}
	var all []db.Event
	if err := db.DB.Where("user_id = ? AND type IN ?", 2, []string{string(event.StreakIncremented), string(event.StreakBroken)}).Find(&all).Error; err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected no new transition events, got %d", len(all))
	}
}
