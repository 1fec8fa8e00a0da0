// Package snooze proposes ranked alternative delivery times for a
// reminder, reusing the suppression evaluator's window adjustment so a
// suggestion never lands where delivery would be suppressed anyway.
package snooze

import (
	"time"

	"github.com/mkravets/followup-reminder/pkg/schedule"
)

type CandidateType string

const (
	LaterToday      CandidateType = "later_today"
	TomorrowMorning CandidateType = "tomorrow_morning"
	NextWorkingDay  CandidateType = "next_working_day"
	InThreeDays     CandidateType = "in_3_days"
	NextWeek        CandidateType = "next_week"
	PickATime       CandidateType = "pick_a_time"
)

const manualScore = 50

type Candidate struct {
	Type        CandidateType
	FireAt      time.Time
	Label       string
	Score       int
	Recommended bool
	Adjusted    bool
}

var labels = map[CandidateType]string{
	LaterToday:      "Later today",
	TomorrowMorning: "Tomorrow morning",
	NextWorkingDay:  "Next working day",
	InThreeDays:     "In 3 days",
	NextWeek:        "Next week",
	PickATime:       "Pick a time",
}

// enabledFunc gates candidate types on the user's enabled option set.
type enabledFunc func(option string) bool

// generate builds the naive candidate times and runs each through the
// shared window adjustment. later_today is discarded when adjustment
// pushes it off today's calendar day. pick_a_time is handled by the
// caller: it is never generated or adjusted here.
func generate(now time.Time, window schedule.Window, enabled enabledFunc) []Candidate {
	local := now.In(window.Location)
	candidates := make([]Candidate, 0, 5)

	add := func(t CandidateType, naive time.Time) {
		if !enabled(string(t)) {
			return
		}
		fireAt, adjusted := window.Adjust(naive)
		if t == LaterToday {
			if fireAt.In(window.Location).YearDay() != local.YearDay() ||
				fireAt.In(window.Location).Year() != local.Year() {
				return
			}
		}
		candidates = append(candidates, Candidate{
			Type:     t,
			FireAt:   fireAt,
			Label:    labels[t],
			Adjusted: adjusted,
		})
	}

	add(LaterToday, now.Add(2*time.Hour))

	tomorrow := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, window.Location).AddDate(0, 0, 1)
	nextStart := window.NextWorkingStart(tomorrow)
	add(TomorrowMorning, nextStart.Add(15*time.Minute))
	add(NextWorkingDay, nextStart)

	add(InThreeDays, now.Add(72*time.Hour))

	monday := nextMonday(local)
	add(NextWeek, time.Date(monday.Year(), monday.Month(), monday.Day(), window.WorkStartHour, 0, 0, 0, window.Location))

	return candidates
}

func nextMonday(local time.Time) time.Time {
	days := (int(time.Monday) - int(local.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return local.AddDate(0, 0, days)
}
