// Package event defines the closed set of event types and their payload
// schemas. Payloads are a tagged union keyed by event type: each type has
// one payload struct, validated when the event is appended.
package event

type Type string

const (
	ReminderCreated    Type = "reminder_created"
	ReminderDue        Type = "reminder_due"
	ReminderSent       Type = "reminder_sent"
	ReminderSuppressed Type = "reminder_suppressed"
	ReminderCompleted  Type = "reminder_completed"
	ReminderSnoozed    Type = "reminder_snoozed"
	ReminderFailed     Type = "reminder_failed"

	SnoozeSuggested Type = "snooze_suggested"

	PromptQueued    Type = "prompt_queued"
	PromptDisplayed Type = "prompt_displayed"
	PromptActed     Type = "prompt_acted"
	PromptDismissed Type = "prompt_dismissed"

	EmailOpened Type = "email_opened"

	StreakIncremented Type = "streak_incremented"
	StreakBroken      Type = "streak_broken"

	DigestSent   Type = "digest_sent"
	DigestFailed Type = "digest_failed"
)

var known = map[Type]struct{}{
	ReminderCreated:    {},
	ReminderDue:        {},
	ReminderSent:       {},
	ReminderSuppressed: {},
	ReminderCompleted:  {},
	ReminderSnoozed:    {},
	ReminderFailed:     {},
	SnoozeSuggested:    {},
	PromptQueued:       {},
	PromptDisplayed:    {},
	PromptActed:        {},
	PromptDismissed:    {},
	EmailOpened:        {},
	StreakIncremented:  {},
	StreakBroken:       {},
	DigestSent:         {},
	DigestFailed:       {},
}

func (t Type) Known() bool {
	_, ok := known[t]
	return ok
}

// TriggerEligible reports whether events of this type are offered to the
// trigger rule engine.
func (t Type) TriggerEligible() bool {
	switch t {
	case ReminderDue, ReminderCompleted, ReminderSuppressed, EmailOpened, StreakIncremented:
		return true
	default:
		return false
	}
}

// Engagement reports whether this type counts as an engagement signal for
// snooze scoring.
func (t Type) Engagement() bool {
	switch t {
	case EmailOpened, PromptActed, ReminderCompleted:
		return true
	default:
		return false
	}
}

// EngagementTypes lists the engagement signal types for event-log queries.
func EngagementTypes() []Type {
	return []Type{EmailOpened, PromptActed, ReminderCompleted}
}
