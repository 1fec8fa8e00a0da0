package trigger

import (
	"encoding/json"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/logger"
)

// GlobalCooldown is the minimum gap between displayed prompts for one
// user, regardless of which rule queued them.
const GlobalCooldown = 5 * time.Minute

// RuleCondition is the decoded per-rule predicate configuration.
type RuleCondition struct {
	RequiresContact  bool `json:"requires_contact,omitempty"`
	RequiresReminder bool `json:"requires_reminder,omitempty"`
	MinStreak        int  `json:"min_streak,omitempty"`
}

func decodeCondition(rule *db.TriggerRule) RuleCondition {
	var cond RuleCondition
	if len(rule.Condition) == 0 {
		return cond
	}
	if err := json.Unmarshal(rule.Condition, &cond); err != nil {
		logger.Error("bad rule condition payload", "rule_id", rule.ID, "error", err)
	}
	return cond
}

// conditionSatisfied checks the rule-specific predicate against the
// source event.
func conditionSatisfied(rule *db.TriggerRule, ev *db.Event, streak int) bool {
	cond := decodeCondition(rule)
	if cond.RequiresContact && ev.ContactID == nil {
		return false
	}
	if cond.RequiresReminder && ev.ReminderID == nil {
		return false
	}
	if cond.MinStreak > 0 && streak < cond.MinStreak {
		return false
	}
	return true
}

// globalCooldownClear reports whether enough time has passed since this
// user last had any prompt displayed. Fails closed: a lookup error
// counts as an active cooldown.
func globalCooldownClear(userID int64, now time.Time) bool {
	last, err := db.LastDisplayedPrompt(userID)
	if err != nil {
		logger.Error("global cooldown lookup failed, skipping", "user_id", userID, "error", err)
		return false
	}
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= GlobalCooldown
}

// ruleCooldownClear checks the per-rule cooldown. Fails closed.
func ruleCooldownClear(rule *db.TriggerRule, now time.Time) bool {
	if rule.CooldownSeconds <= 0 {
		return true
	}
	last, err := db.LastPromptForRule(rule.ID)
	if err != nil {
		logger.Error("rule cooldown lookup failed, skipping", "rule_id", rule.ID, "error", err)
		return false
	}
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= time.Duration(rule.CooldownSeconds)*time.Second
}

// entityCapClear checks the per-entity daily cap for rules that carry
// one. Events without a contact are uncapped. Fails closed.
func entityCapClear(rule *db.TriggerRule, ev *db.Event, now time.Time, loc *time.Location) bool {
	if rule.MaxPerEntityPerDay <= 0 || ev.ContactID == nil {
		return true
	}
	count, err := db.CountPromptsForEntityToday(rule.ID, *ev.ContactID, now, loc)
	if err != nil {
		logger.Error("entity cap lookup failed, skipping", "rule_id", rule.ID, "error", err)
		return false
	}
	return count < int64(rule.MaxPerEntityPerDay)
}
