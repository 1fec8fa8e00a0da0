package schedule

import (
	"testing"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
)

func testWindow() Window {
	return Window{
		Location: time.UTC,
		WorkingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		WorkStartHour:  9,
		WorkEndHour:    18,
		QuietEnabled:   true,
		QuietStartHour: 22,
		QuietEndHour:   7,
	}
}

func TestInWorkingHours(t *testing.T) {
	w := testWindow()

	// Monday 2025-01-06
	if !w.InWorkingHours(time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)) {
		t.Fatal("expected Monday 10:00 inside working hours")
	}
	if w.InWorkingHours(time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC)) {
		t.Fatal("expected Monday 18:00 outside working hours")
	}
	// Saturday 2025-01-04
	if w.InWorkingHours(time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC)) {
		t.Fatal("expected Saturday outside working hours")
	}
}

func TestWeekendQualifiesOnlyWhenAllowed(t *testing.T) {
	w := testWindow()
	saturday := time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC)

	if w.QualifyingDay(saturday) {
		t.Fatal("expected Saturday to be disqualified")
	}
	w.AllowWeekends = true
	if !w.QualifyingDay(saturday) {
		t.Fatal("expected Saturday to qualify when weekends are allowed")
	}
}

func TestInQuietHoursAcrossMidnight(t *testing.T) {
	w := testWindow()

	if !w.InQuietHours(time.Date(2025, 1, 6, 23, 0, 0, 0, time.UTC)) {
		t.Fatal("expected 23:00 inside quiet hours")
	}
	if !w.InQuietHours(time.Date(2025, 1, 6, 3, 0, 0, 0, time.UTC)) {
		t.Fatal("expected 03:00 inside quiet hours")
	}
	if w.InQuietHours(time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)) {
		t.Fatal("expected noon outside quiet hours")
	}
}

func TestQuietEnd(t *testing.T) {
	w := testWindow()

	end := w.QuietEnd(time.Date(2025, 1, 6, 23, 0, 0, 0, time.UTC))
	want := time.Date(2025, 1, 7, 7, 0, 0, 0, time.UTC)
	if !end.Equal(want) {
		t.Fatalf("expected quiet end %v, got %v", want, end)
	}

	end = w.QuietEnd(time.Date(2025, 1, 7, 3, 0, 0, 0, time.UTC))
	if !end.Equal(want) {
		t.Fatalf("expected quiet end %v, got %v", want, end)
	}
}

func TestNextWorkingStartSkipsWeekend(t *testing.T) {
	w := testWindow()

	// Saturday 2025-01-04 -> Monday 2025-01-06 09:00
	got := w.NextWorkingStart(time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC))
	want := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// Early Monday stays on Monday.
	got = w.NextWorkingStart(time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC))
	if !got.Equal(want) {
		t.Fatalf("expected same-day start %v, got %v", want, got)
	}
}

func TestAdjustMovesOutOfQuietHours(t *testing.T) {
	w := testWindow()

	adjusted, moved := w.Adjust(time.Date(2025, 1, 6, 23, 0, 0, 0, time.UTC))
	if !moved {
		t.Fatal("expected adjustment")
	}
	// Quiet ends 07:00 Tuesday, before working start, so 09:00 Tuesday.
	want := time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC)
	if !adjusted.Equal(want) {
		t.Fatalf("expected %v, got %v", want, adjusted)
	}

	inHours := time.Date(2025, 1, 6, 11, 0, 0, 0, time.UTC)
	same, moved := w.Adjust(inHours)
	if moved || !same.Equal(inHours) {
		t.Fatalf("expected in-hours time unchanged, got %v (moved=%v)", same, moved)
	}
}

func TestFromPreferencesFallsBackToUTC(t *testing.T) {
	prefs := &db.SchedulingPreferences{UserID: 7, Timezone: "Not/AZone", WorkStartHour: 9, WorkEndHour: 18}
	w := FromPreferences(prefs)
	if w.Location != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", w.Location)
	}
	if !w.WorkingDays[time.Monday] || w.WorkingDays[time.Saturday] {
		t.Fatalf("expected default Mon-Fri working days, got %v", w.WorkingDays)
	}
}
