package event

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SuppressionPayload records why a due reminder was withheld and when the
// next attempt is planned. NextAttempt is zero when the reminder was
// dropped outright.
type SuppressionPayload struct {
	Reason      string    `json:"reason"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	NextAttempt time.Time `json:"next_attempt,omitempty"`
}

// DeliveryPayload records an allowed delivery decision.
type DeliveryPayload struct {
	Category    string    `json:"category"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	Channel     string    `json:"channel,omitempty"`
}

// SnoozeSuggestionPayload captures a suggestion batch for engagement
// analysis.
type SnoozeSuggestionPayload struct {
	Candidates []SuggestedCandidate `json:"candidates"`
}

type SuggestedCandidate struct {
	Type     string    `json:"type"`
	FireAt   time.Time `json:"fire_at"`
	Score    int       `json:"score"`
	Adjusted bool      `json:"adjusted"`
}

// SnoozePayload records an applied snooze, manual or automatic.
type SnoozePayload struct {
	Until       time.Time `json:"until"`
	Option      string    `json:"option"`
	DurationHrs float64   `json:"duration_hours"`
}

// PromptPayload links prompt lifecycle events back to their rule.
type PromptPayload struct {
	RuleID      uint   `json:"rule_id"`
	TemplateKey string `json:"template_key"`
	PromptID    uint   `json:"prompt_id"`
}

// StreakPayload carries the streak transition detail.
type StreakPayload struct {
	Previous int `json:"previous"`
	Current  int `json:"current"`
}

// DigestPayload records a digest batch outcome for one user.
type DigestPayload struct {
	WeekStart time.Time `json:"week_start"`
	Variant   string    `json:"variant"`
	Retries   int       `json:"retries"`
	Error     string    `json:"error,omitempty"`
}

var payloadPrototypes = map[Type]func() interface{}{
	ReminderSuppressed: func() interface{} { return &SuppressionPayload{} },
	ReminderSent:       func() interface{} { return &DeliveryPayload{} },
	ReminderDue:        func() interface{} { return &DeliveryPayload{} },
	SnoozeSuggested:    func() interface{} { return &SnoozeSuggestionPayload{} },
	ReminderSnoozed:    func() interface{} { return &SnoozePayload{} },
	PromptQueued:       func() interface{} { return &PromptPayload{} },
	PromptDisplayed:    func() interface{} { return &PromptPayload{} },
	PromptActed:        func() interface{} { return &PromptPayload{} },
	PromptDismissed:    func() interface{} { return &PromptPayload{} },
	StreakIncremented:  func() interface{} { return &StreakPayload{} },
	StreakBroken:       func() interface{} { return &StreakPayload{} },
	DigestSent:         func() interface{} { return &DigestPayload{} },
	DigestFailed:       func() interface{} { return &DigestPayload{} },
}

// EncodePayload marshals a payload for storage. Types without a schema
// (plain signals like email_opened) accept a nil payload only.
func EncodePayload(t Type, payload interface{}) (datatypes.JSON, error) {
	if !t.Known() {
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if payload == nil {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return datatypes.JSON(raw), nil
}

// DecodePayload unmarshals a stored payload into its schema struct.
// Returns nil for types without a schema or for empty payloads.
func DecodePayload(t Type, raw datatypes.JSON) (interface{}, error) {
	proto, ok := payloadPrototypes[t]
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	target := proto()
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return target, nil
}
