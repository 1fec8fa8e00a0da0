package digest

import (
	"sort"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/event"
)

const topContactCount = 3

type ContactActivity struct {
	ContactID uint `json:"contact_id"`
	Events    int  `json:"events"`
}

type ReminderRef struct {
	ReminderID  uint      `json:"reminder_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// WeeklyStats is the digest's snapshot of one user's week, persisted on
// the job record and fed to the variant selector.
type WeeklyStats struct {
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`

	Created    int `json:"created"`
	Triggered  int `json:"triggered"`
	Completed  int `json:"completed"`
	Snoozed    int `json:"snoozed"`
	Suppressed int `json:"suppressed"`

	SuppressionReasons map[string]int `json:"suppression_reasons,omitempty"`

	OverdueAtStart int `json:"overdue_at_start"`
	OverdueAtEnd   int `json:"overdue_at_end"`

	TopContacts []ContactActivity `json:"top_contacts,omitempty"`

	UpcomingCount       int          `json:"upcoming_count"`
	NoFollowupScheduled bool         `json:"no_followup_scheduled"`
	LongestOverdue      *ReminderRef `json:"longest_overdue,omitempty"`

	TotalEvents int `json:"total_events"`
}

// Overdue reports the headline overdue figure the variant tree keys on.
func (s *WeeklyStats) Overdue() int {
	return s.OverdueAtEnd
}

// ComputeWeeklyStats assembles the stats snapshot for one user's week
// from the event log and the reminder table.
func ComputeWeeklyStats(userID int64, weekStart, weekEnd time.Time) (*WeeklyStats, error) {
	events, err := db.ListUserEvents(userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	stats := &WeeklyStats{
		WeekStart:          weekStart,
		WeekEnd:            weekEnd,
		SuppressionReasons: make(map[string]int),
		TotalEvents:        len(events),
	}

	contactEvents := make(map[uint]int)
	for i := range events {
		ev := &events[i]
		switch event.Type(ev.Type) {
		case event.ReminderCreated:
			stats.Created++
		case event.ReminderDue:
			stats.Triggered++
		case event.ReminderCompleted:
			stats.Completed++
		case event.ReminderSnoozed:
			stats.Snoozed++
		case event.ReminderSuppressed:
			stats.Suppressed++
			if payload, err := ev.DecodedPayload(); err == nil {
				if p, ok := payload.(*event.SuppressionPayload); ok {
					stats.SuppressionReasons[p.Reason]++
				}
			}
		}
		if ev.ContactID != nil {
			contactEvents[*ev.ContactID]++
		}
	}

	for id, count := range contactEvents {
		stats.TopContacts = append(stats.TopContacts, ContactActivity{ContactID: id, Events: count})
	}
	sort.Slice(stats.TopContacts, func(i, j int) bool {
		if stats.TopContacts[i].Events != stats.TopContacts[j].Events {
			return stats.TopContacts[i].Events > stats.TopContacts[j].Events
		}
		return stats.TopContacts[i].ContactID < stats.TopContacts[j].ContactID
	})
	if len(stats.TopContacts) > topContactCount {
		stats.TopContacts = stats.TopContacts[:topContactCount]
	}

	if err := fillReminderFigures(userID, stats, weekStart, weekEnd); err != nil {
		return nil, err
	}
	return stats, nil
}

func fillReminderFigures(userID int64, stats *WeeklyStats, weekStart, weekEnd time.Time) error {
	overdueAt := func(cutoff time.Time) (int64, error) {
		var count int64
		err := db.DB.Model(&db.Reminder{}).
			Where("user_id = ? AND status IN ? AND scheduled_at < ?",
				userID, []string{db.ReminderStatusPending, db.ReminderStatusSnoozed}, cutoff).
			Count(&count).Error
		return count, err
	}

	atStart, err := overdueAt(weekStart)
	if err != nil {
		return err
	}
	atEnd, err := overdueAt(weekEnd)
	if err != nil {
		return err
	}
	stats.OverdueAtStart = int(atStart)
	stats.OverdueAtEnd = int(atEnd)

	var upcoming int64
	if err := db.DB.Model(&db.Reminder{}).
		Where("user_id = ? AND status IN ? AND scheduled_at >= ?",
			userID, []string{db.ReminderStatusPending, db.ReminderStatusSnoozed}, weekEnd).
		Count(&upcoming).Error; err != nil {
		return err
	}
	stats.UpcomingCount = int(upcoming)
	stats.NoFollowupScheduled = upcoming == 0

	var longest db.Reminder
	err = db.DB.
		Where("user_id = ? AND status IN ? AND scheduled_at < ?",
			userID, []string{db.ReminderStatusPending, db.ReminderStatusSnoozed}, weekEnd).
		Order("scheduled_at ASC").
		Limit(1).
		Find(&longest).Error
	if err != nil {
		return err
	}
	if longest.ID != 0 {
		stats.LongestOverdue = &ReminderRef{ReminderID: longest.ID, ScheduledAt: longest.ScheduledAt}
	}
	return nil
}
