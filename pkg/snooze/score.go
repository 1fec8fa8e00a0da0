package snooze

import (
	"math"
	"sort"
	"time"

	"github.com/mkravets/followup-reminder/pkg/schedule"
)

// ScoreContext is the per-user history snapshot the scorer consumes.
type ScoreContext struct {
	// AvgSnoozeHours is the rolling average of past snooze durations;
	// zero when the user has no snooze history.
	AvgSnoozeHours float64
	// EngagementSignal is true when the triggering event is an
	// engagement signal (an email open, a completed reminder).
	EngagementSignal bool
	DeliveredToday   int64
	MaxPerDay        int
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// scoreCandidate applies the additive terms and clamps into [0,100].
func scoreCandidate(c Candidate, window schedule.Window, sctx ScoreContext, now time.Time) int {
	score := 0

	if window.InWorkingHours(c.FireAt) {
		score += 30
	} else {
		score -= 50
	}

	if !window.InQuietHours(c.FireAt) {
		score += 20
	} else {
		score -= 40
	}

	if window.QualifyingDay(c.FireAt) {
		score += 15
	} else {
		score -= 50
	}

	if sctx.AvgSnoozeHours > 0 {
		hoursUntil := c.FireAt.Sub(now).Hours()
		diff := math.Abs(hoursUntil-sctx.AvgSnoozeHours) / sctx.AvgSnoozeHours
		switch {
		case diff <= 0.5:
			score += 25
		case diff <= 1.0:
			score += 15
		}
	}

	if sctx.EngagementSignal && c.FireAt.Sub(now) <= 24*time.Hour {
		score += 15
	}

	if sctx.MaxPerDay <= 0 || sctx.DeliveredToday < int64(sctx.MaxPerDay) {
		score += 10
	} else {
		score -= 30
	}

	if !c.Adjusted {
		score += 5
	}

	return clampScore(score)
}

// Rank scores, sorts and trims the candidate set: top five by score, the
// best non-manual candidate flagged recommended, and the manual option
// appended at a fixed neutral score when enabled.
func Rank(now time.Time, window schedule.Window, sctx ScoreContext, enabled enabledFunc) []Candidate {
	candidates := generate(now, window, enabled)
	for i := range candidates {
		candidates[i].Score = scoreCandidate(candidates[i], window, sctx, now)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > 0 {
		candidates[0].Recommended = true
	}
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}

	if enabled(string(PickATime)) {
		candidates = append(candidates, Candidate{
			Type:  PickATime,
			Label: labels[PickATime],
			Score: manualScore,
		})
	}
	return candidates
}
