package db_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/internal/testutil"
)

func newPrompt(userID int64, sourceEventID uint, now time.Time) *db.NotificationPrompt {
	return &db.NotificationPrompt{
		UserID:        userID,
		RuleID:        1,
		SourceEventID: sourceEventID,
		Title:         "Follow-up due",
		Status:        db.PromptStatusQueued,
		Token:         uuid.NewString(),
		QueuedAt:      now,
		ExpiresAt:     now.Add(24 * time.Hour),
	}
}

func TestCreatePromptDeduplicatesBySourceEvent(t *testing.T) {
	testutil.SetupTestDB(t)

	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

	created, err := db.CreatePrompt(newPrompt(1, 42, now))
	if err != nil {
		t.Fatalf("failed to create prompt: %v", err)
	}
	if !created {
		t.Fatal("expected first insert to create")
	}

	created, err = db.CreatePrompt(newPrompt(1, 42, now.Add(time.Second)))
	if err != nil {
		t.Fatalf("duplicate insert should be benign: %v", err)
	}
	if created {
		t.Fatal("expected duplicate insert reported as not created")
	}

	exists, err := db.PromptExistsForEvent(42)
	if err != nil {
		t.Fatalf("failed to check existence: %v", err)
	}
	if !exists {
		t.Fatal("expected prompt to exist for event")
	}

	var count int64
	if err := db.DB.Model(&db.NotificationPrompt{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count prompts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one prompt row, got %d", count)
	}
}

func TestUpdatePromptStatusStateMachine(t *testing.T) {
	testutil.SetupTestDB(t)

	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	prompt := newPrompt(1, 42, now)
	if _, err := db.CreatePrompt(prompt); err != nil {
		t.Fatalf("failed to create prompt: %v", err)
	}

	// queued -> acted skips a step and is rejected.
	err := db.UpdatePromptStatus(prompt.ID, db.PromptStatusQueued, db.PromptStatusActed, now)
	if !errors.Is(err, db.ErrInvalidPromptTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if err := db.UpdatePromptStatus(prompt.ID, db.PromptStatusQueued, db.PromptStatusDisplayed, now); err != nil {
		t.Fatalf("failed queued->displayed: %v", err)
	}
	if err := db.UpdatePromptStatus(prompt.ID, db.PromptStatusDisplayed, db.PromptStatusActed, now.Add(time.Minute)); err != nil {
		t.Fatalf("failed displayed->acted: %v", err)
	}

	// acted is terminal; a stale transition from displayed loses the
	// conditional update.
	err = db.UpdatePromptStatus(prompt.ID, db.PromptStatusDisplayed, db.PromptStatusDismissed, now.Add(2*time.Minute))
	if !errors.Is(err, db.ErrInvalidPromptTransition) {
		t.Fatalf("expected stale transition rejected, got %v", err)
	}

	var got db.NotificationPrompt
	if err := db.DB.First(&got, prompt.ID).Error; err != nil {
		t.Fatalf("failed to load prompt: %v", err)
	}
	if got.Status != db.PromptStatusActed {
		t.Fatalf("expected acted, got %s", got.Status)
	}
	if got.DisplayedAt == nil || !got.DisplayedAt.Equal(now) {
		t.Fatalf("expected displayed_at recorded, got %v", got.DisplayedAt)
	}
}

func TestPromptLookups(t *testing.T) {
	testutil.SetupTestDB(t)

	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

	last, err := db.LastDisplayedPrompt(1)
	if err != nil {
		t.Fatalf("failed lookup on empty table: %v", err)
	}
	if !last.IsZero() {
		t.Fatalf("expected zero time, got %v", last)
	}

	first := newPrompt(1, 1, now)
	if _, err := db.CreatePrompt(first); err != nil {
		t.Fatalf("failed to create prompt: %v", err)
	}
	if err := db.UpdatePromptStatus(first.ID, db.PromptStatusQueued, db.PromptStatusDisplayed, now.Add(time.Minute)); err != nil {
		t.Fatalf("failed to display prompt: %v", err)
	}

	last, err = db.LastDisplayedPrompt(1)
	if err != nil {
		t.Fatalf("failed lookup: %v", err)
	}
	if !last.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected display time, got %v", last)
	}

	ruleLast, err := db.LastPromptForRule(1)
	if err != nil {
		t.Fatalf("failed rule lookup: %v", err)
	}
	if !ruleLast.Equal(now) {
		t.Fatalf("expected queue time, got %v", ruleLast)
	}
}

func TestCountPromptsForEntityToday(t *testing.T) {
	testutil.SetupTestDB(t)

	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	contact := uint(7)

	add := func(sourceEventID uint, queuedAt time.Time) {
		t.Helper()
		prompt := newPrompt(1, sourceEventID, queuedAt)
		prompt.ContactID = &contact
		if _, err := db.CreatePrompt(prompt); err != nil {
			t.Fatalf("failed to create prompt: %v", err)
		}
	}

	add(1, now)
	add(2, now.Add(time.Hour))
	add(3, now.AddDate(0, 0, -1)) // yesterday

	count, err := db.CountPromptsForEntityToday(1, contact, now, time.UTC)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 prompts today, got %d", count)
	}
}
