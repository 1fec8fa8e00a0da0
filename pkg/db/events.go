package db

import (
	"fmt"
	"time"

	"github.com/mkravets/followup-reminder/pkg/event"
)

// AppendEvent validates and inserts one immutable event row.
func AppendEvent(userID int64, typ event.Type, occurredAt time.Time, payload interface{}, opts ...EventOption) (*Event, error) {
	raw, err := event.EncodePayload(typ, payload)
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	row := Event{
		UserID:     userID,
		Type:       string(typ),
		OccurredAt: occurredAt,
		Payload:    raw,
	}
	for _, opt := range opts {
		opt(&row)
	}
	if err := DB.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

type EventOption func(*Event)

func WithReminder(id uint) EventOption {
	return func(e *Event) { e.ReminderID = &id }
}

func WithContact(id uint) EventOption {
	return func(e *Event) { e.ContactID = &id }
}

func WithSource(source string) EventOption {
	return func(e *Event) { e.Source = source }
}

// ListUserEvents returns a user's events in [from, to), oldest first.
func ListUserEvents(userID int64, from, to time.Time) ([]Event, error) {
	var events []Event
	err := DB.
		Where("user_id = ? AND occurred_at >= ? AND occurred_at < ?", userID, from, to).
		Order("occurred_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

// CountUserEvents counts a user's events of the given types in [from, to).
func CountUserEvents(userID int64, types []event.Type, from, to time.Time) (int64, error) {
	var count int64
	query := DB.Model(&Event{}).
		Where("user_id = ? AND occurred_at >= ? AND occurred_at < ?", userID, from, to)
	if len(types) > 0 {
		names := make([]string, 0, len(types))
		for _, t := range types {
			names = append(names, string(t))
		}
		query = query.Where("type IN ?", names)
	}
	err := query.Count(&count).Error
	return count, err
}

// CountDeliveredToday counts reminder_sent events for the user on the
// calendar day containing now, in the user's local time.
func CountDeliveredToday(userID int64, now time.Time, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return CountUserEvents(userID, []event.Type{event.ReminderSent}, dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC())
}

// LastDelivery returns the most recent reminder_sent event for the given
// contact/category pairing, or nil if none exists. A nil contactID keys
// on category alone.
func LastDelivery(userID int64, contactID *uint, category string, before time.Time) (*Event, error) {
	query := DB.Model(&Event{}).
		Where("user_id = ? AND type = ? AND occurred_at < ?", userID, string(event.ReminderSent), before)
	if contactID != nil {
		query = query.Where("contact_id = ?", *contactID)
	} else if category != "" {
		query = query.Where("source = ?", category)
	}
	var row Event
	err := query.Order("occurred_at DESC, id DESC").Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

// DecodedPayload is a convenience for audit paths.
func (e *Event) DecodedPayload() (interface{}, error) {
	return event.DecodePayload(event.Type(e.Type), e.Payload)
}
