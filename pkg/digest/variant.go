package digest

const (
	VariantStandard   = "standard"
	VariantLight      = "light"
	VariantRecovery   = "recovery"
	VariantNoActivity = "no_activity"
)

// SelectVariant maps a stats snapshot to exactly one content variant.
// The tree is deterministic and total: every input lands on a branch.
func SelectVariant(stats *WeeklyStats, prefersLight bool) string {
	if prefersLight && stats != nil && stats.TotalEvents > 0 {
		return VariantLight
	}
	if stats == nil || stats.TotalEvents == 0 {
		return VariantNoActivity
	}
	if stats.TotalEvents <= 3 && stats.Completed == 0 {
		return VariantLight
	}
	if stats.Overdue() >= 3 || snoozeRate(stats) >= 0.5 || completionRate(stats) < 0.3 {
		return VariantRecovery
	}
	return VariantStandard
}

func snoozeRate(stats *WeeklyStats) float64 {
	if stats.Triggered == 0 {
		return 0
	}
	return float64(stats.Snoozed) / float64(stats.Triggered)
}

func completionRate(stats *WeeklyStats) float64 {
	if stats.Triggered == 0 {
		// No triggers means completion cannot be judged; treat as
		// acceptable rather than pushing everyone into recovery.
		return 1
	}
	return float64(stats.Completed) / float64(stats.Triggered)
}
