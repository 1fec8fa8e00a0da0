package digest

import (
	"fmt"
	"strings"

	"github.com/mkravets/followup-reminder/pkg/delivery"
)

// renderContent produces the channel-agnostic digest body for a variant.
// Rich per-channel templating is the transports' concern, not ours.
func renderContent(variant string, stats *WeeklyStats) delivery.Content {
	var b strings.Builder

	switch variant {
	case VariantNoActivity:
		b.WriteString("It was a quiet week. No follow-up activity recorded.\n")
		b.WriteString("Add a reminder to get the ball rolling again.\n")
		return delivery.Content{Subject: "Your week in follow-ups", Body: b.String()}

	case VariantLight:
		fmt.Fprintf(&b, "A light week: %d follow-ups triggered, %d completed.\n", stats.Triggered, stats.Completed)
		if stats.UpcomingCount > 0 {
			fmt.Fprintf(&b, "%d follow-ups are coming up next week.\n", stats.UpcomingCount)
		}

	case VariantRecovery:
		fmt.Fprintf(&b, "Time to catch up: %d follow-ups are overdue.\n", stats.Overdue())
		fmt.Fprintf(&b, "Last week: %d triggered, %d completed, %d snoozed.\n", stats.Triggered, stats.Completed, stats.Snoozed)
		if stats.LongestOverdue != nil {
			fmt.Fprintf(&b, "Your oldest open follow-up has been waiting since %s.\n",
				stats.LongestOverdue.ScheduledAt.Format("Jan 2"))
		}

	default:
		fmt.Fprintf(&b, "Last week: %d created, %d triggered, %d completed, %d snoozed.\n",
			stats.Created, stats.Triggered, stats.Completed, stats.Snoozed)
		if stats.Suppressed > 0 {
			fmt.Fprintf(&b, "%d reminders were rescheduled around your working hours.\n", stats.Suppressed)
		}
		if stats.UpcomingCount > 0 {
			fmt.Fprintf(&b, "%d follow-ups are scheduled for the week ahead.\n", stats.UpcomingCount)
		} else {
			b.WriteString("Nothing scheduled yet for next week.\n")
		}
	}

	return delivery.Content{Subject: "Your week in follow-ups", Body: b.String()}
}
