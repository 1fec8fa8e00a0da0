package db

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ReminderStatusPending = "pending"
	ReminderStatusSent    = "sent"
	ReminderStatusFailed  = "failed"
	ReminderStatusSnoozed = "snoozed"
)

type Reminder struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      int64 `gorm:"index;index:idx_reminder_user_status_due"`
	ContactID   *uint `gorm:"index"`
	Message     string
	Category    string    `gorm:"not null;default:general"`
	ScheduledAt time.Time `gorm:"index:idx_reminder_user_status_due"`
	Status      string    `gorm:"not null;default:pending;index:idx_reminder_user_status_due"`
	SnoozeCount int       `gorm:"not null;default:0"`
	SentAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event rows are append-only. Nothing updates or deletes them; stats,
// streaks and audit views all derive from this table.
type Event struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     int64     `gorm:"index:idx_event_user_time"`
	Type       string    `gorm:"not null;index"`
	OccurredAt time.Time `gorm:"not null;index:idx_event_user_time"`
	ReminderID *uint
	ContactID  *uint
	Source     string
	Payload    datatypes.JSON
	CreatedAt  time.Time
}

type SchedulingPreferences struct {
	ID     uint  `gorm:"primaryKey"`
	UserID int64 `gorm:"uniqueIndex"`

	Timezone      string         `gorm:"not null;default:UTC"`
	WorkingDays   datatypes.JSON // time.Weekday numbers
	WorkStartHour int            `gorm:"not null;default:9"`
	WorkEndHour   int            `gorm:"not null;default:18"`

	QuietHoursEnabled bool `gorm:"not null;default:false"`
	QuietStartHour    int  `gorm:"not null;default:22"`
	QuietEndHour      int  `gorm:"not null;default:7"`

	MaxRemindersPerDay int  `gorm:"not null;default:10"`
	AllowWeekends      bool `gorm:"not null;default:false"`
	CooldownMinutes    int  `gorm:"not null;default:60"`
	RemindersPaused    bool `gorm:"not null;default:false"`

	SnoozeOptions      datatypes.JSON // enabled snooze option type names
	SmartSuggestions   bool           `gorm:"not null;default:true"`
	PromptsEnabled     bool           `gorm:"not null;default:true"`
	DisabledCategories datatypes.JSON

	DigestEnabled        bool   `gorm:"not null;default:true"`
	DigestDay            int    `gorm:"not null;default:1"` // time.Weekday, Monday
	DigestHour           int    `gorm:"not null;default:8"`
	DigestMinute         int    `gorm:"not null;default:0"`
	DigestOnlyWhenActive bool   `gorm:"not null;default:false"`
	DigestDetail         string `gorm:"not null;default:standard"` // "standard" or "light"

	CreatedAt time.Time
	UpdatedAt time.Time
}

type TriggerRule struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             int64  `gorm:"index:idx_rule_user_event"`
	EventType          string `gorm:"not null;index:idx_rule_user_event"`
	Condition          datatypes.JSON
	TemplateKey        string `gorm:"not null"`
	Priority           int    `gorm:"not null;default:0"`
	CooldownSeconds    int    `gorm:"not null;default:0"`
	MaxPerEntityPerDay int    `gorm:"not null;default:0"` // 0 means uncapped
	TTLHours           int    `gorm:"not null;default:24"`
	Enabled            bool   `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const (
	PromptStatusQueued    = "queued"
	PromptStatusDisplayed = "displayed"
	PromptStatusDismissed = "dismissed"
	PromptStatusActed     = "acted"
	PromptStatusExpired   = "expired"
)

// NotificationPrompt carries a unique index on SourceEventID; a duplicate
// insert means another worker already handled the event and is a no-op.
type NotificationPrompt struct {
	ID            uint  `gorm:"primaryKey"`
	UserID        int64 `gorm:"index"`
	ReminderID    *uint
	ContactID     *uint
	RuleID        uint
	SourceEventID uint   `gorm:"uniqueIndex:idx_prompt_source_event"`
	Title         string `gorm:"not null"`
	Message       string
	Priority      int
	Status        string `gorm:"not null;default:queued;index"`
	Token         string `gorm:"not null"`
	Payload       datatypes.JSON
	QueuedAt      time.Time `gorm:"not null"`
	DisplayedAt   *time.Time
	ExpiresAt     time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	DigestStatusSent   = "sent"
	DigestStatusFailed = "failed"
)

// DigestJobRecord's DedupeKey is the idempotency anchor for the weekly
// batch: exactly one terminal record per (user, week start).
type DigestJobRecord struct {
	ID            string `gorm:"primaryKey"`
	UserID        int64  `gorm:"index"`
	WeekStart     time.Time
	WeekEnd       time.Time
	DedupeKey     string `gorm:"uniqueIndex:idx_digest_dedupe"`
	Variant       string
	Stats         datatypes.JSON
	Status        string `gorm:"not null"`
	RetryCount    int    `gorm:"not null;default:0"`
	FailureReason string
	SentAt        *time.Time
	CreatedAt     time.Time
}

// InboxMessage is the in-app delivery channel's landing table.
type InboxMessage struct {
	ID        uint  `gorm:"primaryKey"`
	UserID    int64 `gorm:"index"`
	Title     string
	Body      string
	ReadAt    *time.Time
	CreatedAt time.Time
}
