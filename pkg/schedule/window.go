// Package schedule holds the working-hours, quiet-hours and weekend
// window arithmetic shared by the suppression evaluator and the snooze
// candidate generator. All checks run in the user's own location.
package schedule

import (
	"encoding/json"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/logger"
)

type Window struct {
	Location      *time.Location
	WorkingDays   map[time.Weekday]bool
	WorkStartHour int
	WorkEndHour   int

	QuietEnabled   bool
	QuietStartHour int
	QuietEndHour   int

	AllowWeekends bool
}

var defaultWorkingDays = map[time.Weekday]bool{
	time.Monday:    true,
	time.Tuesday:   true,
	time.Wednesday: true,
	time.Thursday:  true,
	time.Friday:    true,
}

// FromPreferences builds the window for one user. An unknown timezone
// falls back to UTC rather than failing the pipeline.
func FromPreferences(prefs *db.SchedulingPreferences) Window {
	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		logger.Error("unknown timezone, falling back to UTC", "user_id", prefs.UserID, "timezone", prefs.Timezone)
		loc = time.UTC
	}

	days := map[time.Weekday]bool{}
	var raw []int
	if len(prefs.WorkingDays) > 0 {
		if err := json.Unmarshal(prefs.WorkingDays, &raw); err != nil {
			logger.Error("bad working days payload, using defaults", "user_id", prefs.UserID, "error", err)
		}
	}
	if len(raw) == 0 {
		days = defaultWorkingDays
	} else {
		for _, d := range raw {
			if d >= 0 && d <= 6 {
				days[time.Weekday(d)] = true
			}
		}
	}

	return Window{
		Location:       loc,
		WorkingDays:    days,
		WorkStartHour:  prefs.WorkStartHour,
		WorkEndHour:    prefs.WorkEndHour,
		QuietEnabled:   prefs.QuietHoursEnabled,
		QuietStartHour: prefs.QuietStartHour,
		QuietEndHour:   prefs.QuietEndHour,
		AllowWeekends:  prefs.AllowWeekends,
	}
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// QualifyingDay reports whether reminders may fire on this day at all.
func (w Window) QualifyingDay(t time.Time) bool {
	local := t.In(w.Location)
	day := local.Weekday()
	if w.WorkingDays[day] {
		if isWeekend(day) && !w.AllowWeekends {
			return false
		}
		return true
	}
	if isWeekend(day) && w.AllowWeekends {
		return true
	}
	return false
}

// InWorkingHours reports whether t falls on a qualifying day within
// [WorkStartHour, WorkEndHour).
func (w Window) InWorkingHours(t time.Time) bool {
	if !w.QualifyingDay(t) {
		return false
	}
	h := t.In(w.Location).Hour()
	return h >= w.WorkStartHour && h < w.WorkEndHour
}

// InQuietHours handles quiet windows that span midnight (22 -> 7).
func (w Window) InQuietHours(t time.Time) bool {
	if !w.QuietEnabled {
		return false
	}
	h := t.In(w.Location).Hour()
	if w.QuietStartHour <= w.QuietEndHour {
		return h >= w.QuietStartHour && h < w.QuietEndHour
	}
	return h >= w.QuietStartHour || h < w.QuietEndHour
}

// QuietEnd returns the end of the quiet window containing t.
func (w Window) QuietEnd(t time.Time) time.Time {
	local := t.In(w.Location)
	year, month, day := local.Date()
	end := time.Date(year, month, day, w.QuietEndHour, 0, 0, 0, w.Location)
	if !end.After(local) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// workStartOn returns the working-hours start on the calendar day of t.
func (w Window) workStartOn(t time.Time) time.Time {
	local := t.In(w.Location)
	year, month, day := local.Date()
	return time.Date(year, month, day, w.WorkStartHour, 0, 0, 0, w.Location)
}

// NextWorkingStart returns the start of working hours at or after t: the
// same day's start when t precedes it on a qualifying day, otherwise the
// start on the next qualifying day.
func (w Window) NextWorkingStart(t time.Time) time.Time {
	local := t.In(w.Location)
	if w.QualifyingDay(local) && local.Hour() < w.WorkStartHour {
		return w.workStartOn(local)
	}
	day := local
	for i := 0; i < 8; i++ {
		day = day.AddDate(0, 0, 1)
		if w.QualifyingDay(day) {
			return w.workStartOn(day)
		}
	}
	// No qualifying day configured at all; fall back to tomorrow.
	return w.workStartOn(local.AddDate(0, 0, 1))
}

// Adjust clamps t into the working window. The second return reports
// whether the time moved.
func (w Window) Adjust(t time.Time) (time.Time, bool) {
	if w.InWorkingHours(t) && !w.InQuietHours(t) {
		return t, false
	}
	if w.InQuietHours(t) {
		end := w.QuietEnd(t)
		if w.InWorkingHours(end) {
			return end, true
		}
		return w.NextWorkingStart(end), true
	}
	return w.NextWorkingStart(t), true
}
