package digest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/delivery"
	"github.com/mkravets/followup-reminder/pkg/event"
	"github.com/mkravets/followup-reminder/pkg/internal/testutil"
	"gorm.io/datatypes"
)

type fakeSender struct {
	mu       sync.Mutex
	name     string
	sent     []delivery.Content
	failures int
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(ctx context.Context, to delivery.Recipient, content delivery.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("transient failure")
	}
	f.sent = append(f.sent, content)
	return nil
}

// mondayTick is Monday 2025-01-13 08:10 UTC, inside the default digest
// moment (Monday, 08:00, minute tolerance).
var mondayTick = time.Date(2025, 1, 13, 8, 10, 0, 0, time.UTC)

func digestUser(t *testing.T, userID int64, createdAt time.Time) *db.SchedulingPreferences {
	t.Helper()
	prefs := &db.SchedulingPreferences{
		UserID:        userID,
		Timezone:      "UTC",
		WorkingDays:   datatypes.JSON(`[1,2,3,4,5]`),
		WorkStartHour: 9,
		WorkEndHour:   18,
		DigestEnabled: true,
		DigestDay:     int(time.Monday),
		DigestHour:    8,
		DigestDetail:  "standard",
		CreatedAt:     createdAt,
	}
	if err := db.DB.Create(prefs).Error; err != nil {
		t.Fatalf("failed to create preferences: %v", err)
	}
	return prefs
}

func seedWeekActivity(t *testing.T, userID int64) {
	t.Helper()
	// Activity inside the completed week (Jan 6 - Jan 13).
	during := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if _, err := db.AppendEvent(userID, event.ReminderDue, during.Add(time.Duration(i)*time.Hour),
			&event.DeliveryPayload{Category: "general", EvaluatedAt: during}); err != nil {
			t.Fatalf("failed to seed events: %v", err)
		}
	}
	if _, err := db.AppendEvent(userID, event.ReminderCompleted, during.Add(5*time.Hour), nil); err != nil {
		t.Fatalf("failed to seed completion: %v", err)
	}
	reminder := &db.Reminder{UserID: userID, Category: "general", Status: db.ReminderStatusPending,
		ScheduledAt: time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)}
	if err := db.DB.Create(reminder).Error; err != nil {
		t.Fatalf("failed to seed reminder: %v", err)
	}
}

func TestRunTickSendsOnceAndIsIdempotent(t *testing.T) {
	testutil.SetupTestDB(t)

	signup := mondayTick.AddDate(0, -1, 0)
	digestUser(t, 1, signup)
	seedWeekActivity(t, 1)

	sender := &fakeSender{name: "inapp"}
	scheduler := &Scheduler{Senders: []delivery.Sender{sender}, Backoff: []time.Duration{0, 0, 0}}

	summary := scheduler.RunTick(context.Background(), mondayTick)
	if summary.Due != 1 || summary.Sent != 1 {
		t.Fatalf("expected one due and sent, got %+v", summary)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one delivery, got %d", len(sender.sent))
	}

	// Re-invocation within the same day is a skip, not a resend.
	summary = scheduler.RunTick(context.Background(), mondayTick.Add(30*time.Minute))
	if summary.Sent != 0 || summary.Skipped != 1 {
		t.Fatalf("expected idempotent skip, got %+v", summary)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected no second delivery, got %d", len(sender.sent))
	}

	var records []db.DigestJobRecord
	if err := db.DB.Where("user_id = ?", 1).Find(&records).Error; err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	if len(records) != 1 || records[0].Status != db.DigestStatusSent {
		t.Fatalf("expected one sent record, got %+v", records)
	}
}

func TestRunTickSkipsOffMoment(t *testing.T) {
	testutil.SetupTestDB(t)

	digestUser(t, 1, mondayTick.AddDate(0, -1, 0))
	seedWeekActivity(t, 1)

	sender := &fakeSender{name: "inapp"}
	scheduler := &Scheduler{Senders: []delivery.Sender{sender}}

	// Tuesday, same hour.
	summary := scheduler.RunTick(context.Background(), mondayTick.AddDate(0, 0, 1))
	if summary.Due != 0 {
		t.Fatalf("expected nobody due on Tuesday, got %+v", summary)
	}
	// Monday, wrong hour.
	summary = scheduler.RunTick(context.Background(), time.Date(2025, 1, 13, 12, 0, 0, 0, time.UTC))
	if summary.Due != 0 {
		t.Fatalf("expected nobody due at noon, got %+v", summary)
	}
}

func TestRunTickSkipsBrandNewUser(t *testing.T) {
	testutil.SetupTestDB(t)

	// Signed up two days ago, no reminders.
	digestUser(t, 1, mondayTick.Add(-48*time.Hour))

	sender := &fakeSender{name: "inapp"}
	scheduler := &Scheduler{Senders: []delivery.Sender{sender}}

	summary := scheduler.RunTick(context.Background(), mondayTick)
	if summary.Due != 1 || summary.Skipped != 1 || summary.Sent != 0 {
		t.Fatalf("expected silent skip for new user, got %+v", summary)
	}
}

func TestRunTickActivityGate(t *testing.T) {
	testutil.SetupTestDB(t)

	prefs := digestUser(t, 1, mondayTick.AddDate(0, -1, 0))
	prefs.DigestOnlyWhenActive = true
	if err := db.DB.Save(prefs).Error; err != nil {
		t.Fatalf("failed to save prefs: %v", err)
	}
	// A reminder exists but no events fell inside the week.
	reminder := &db.Reminder{UserID: 1, Category: "general", Status: db.ReminderStatusPending,
		ScheduledAt: mondayTick.AddDate(0, 0, 7)}
	if err := db.DB.Create(reminder).Error; err != nil {
		t.Fatalf("failed to seed reminder: %v", err)
	}

	sender := &fakeSender{name: "inapp"}
	scheduler := &Scheduler{Senders: []delivery.Sender{sender}}

	summary := scheduler.RunTick(context.Background(), mondayTick)
	if summary.Skipped != 1 || summary.Sent != 0 {
		t.Fatalf("expected activity gate skip, got %+v", summary)
	}
}

func TestRunTickRetriesThenFails(t *testing.T) {
	testutil.SetupTestDB(t)

	digestUser(t, 1, mondayTick.AddDate(0, -1, 0))
	seedWeekActivity(t, 1)

	// Fails every attempt.
	sender := &fakeSender{name: "email", failures: 100}
	scheduler := &Scheduler{Senders: []delivery.Sender{sender}, Backoff: []time.Duration{0, 0, 0}}

	summary := scheduler.RunTick(context.Background(), mondayTick)
	if summary.Failed != 1 {
		t.Fatalf("expected one failure, got %+v", summary)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("expected per-user error recorded, got %+v", summary.Errors)
	}

	var record db.DigestJobRecord
	if err := db.DB.Where("user_id = ?", 1).First(&record).Error; err != nil {
		t.Fatalf("expected a failed record: %v", err)
	}
	if record.Status != db.DigestStatusFailed {
		t.Fatalf("expected failed status, got %s", record.Status)
	}
	if record.RetryCount != 3 {
		t.Fatalf("expected 3 retries recorded, got %d", record.RetryCount)
	}
	if record.FailureReason == "" {
		t.Fatal("expected failure reason recorded")
	}
}

func TestRunTickRecoversAfterTransientFailure(t *testing.T) {
	testutil.SetupTestDB(t)

	digestUser(t, 1, mondayTick.AddDate(0, -1, 0))
	seedWeekActivity(t, 1)

	// First attempt fails, the retry succeeds.
	sender := &fakeSender{name: "email", failures: 1}
	scheduler := &Scheduler{Senders: []delivery.Sender{sender}, Backoff: []time.Duration{0, 0, 0}}

	summary := scheduler.RunTick(context.Background(), mondayTick)
	if summary.Sent != 1 {
		t.Fatalf("expected send after retry, got %+v", summary)
	}

	var record db.DigestJobRecord
	if err := db.DB.Where("user_id = ?", 1).First(&record).Error; err != nil {
		t.Fatalf("expected a record: %v", err)
	}
	if record.Status != db.DigestStatusSent || record.RetryCount != 1 {
		t.Fatalf("expected sent with one retry, got %+v", record)
	}
}

func TestRunTickAllChannelsMustSucceed(t *testing.T) {
	testutil.SetupTestDB(t)

	digestUser(t, 1, mondayTick.AddDate(0, -1, 0))
	seedWeekActivity(t, 1)

	good := &fakeSender{name: "inapp"}
	bad := &fakeSender{name: "email", failures: 100}
	scheduler := &Scheduler{Senders: []delivery.Sender{good, bad}, Backoff: []time.Duration{0, 0, 0}}

	summary := scheduler.RunTick(context.Background(), mondayTick)
	if summary.Failed != 1 {
		t.Fatalf("expected aggregate failure when one channel fails, got %+v", summary)
	}
}

func TestRunTickIsolatesUserFailures(t *testing.T) {
	testutil.SetupTestDB(t)

	digestUser(t, 1, mondayTick.AddDate(0, -1, 0))
	digestUser(t, 2, mondayTick.AddDate(0, -1, 0))
	seedWeekActivity(t, 1)
	seedWeekActivity(t, 2)

	// Two failures exhaust the first user's attempt plus its single
	// retry; the second user is unaffected.
	sender := &fakeSender{name: "inapp", failures: 2}
	scheduler := &Scheduler{Senders: []delivery.Sender{sender}, Backoff: []time.Duration{0}}

	summary := scheduler.RunTick(context.Background(), mondayTick)
	if summary.Due != 2 {
		t.Fatalf("expected two due users, got %+v", summary)
	}
	if summary.Sent != 1 || summary.Failed != 1 {
		t.Fatalf("expected one sent and one failed, got %+v", summary)
	}
}

func TestWeekWindowIsStable(t *testing.T) {
	start, end := weekWindow(mondayTick, time.UTC)
	wantStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Fatalf("expected %v-%v, got %v-%v", wantStart, wantEnd, start, end)
	}

	// Later the same day, same window.
	start2, end2 := weekWindow(mondayTick.Add(45*time.Minute), time.UTC)
	if !start2.Equal(start) || !end2.Equal(end) {
		t.Fatalf("expected stable window, got %v-%v", start2, end2)
	}
}
