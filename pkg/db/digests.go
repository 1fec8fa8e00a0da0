package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DigestDedupeKey is the idempotency key for one user's digest week.
func DigestDedupeKey(userID int64, weekStart time.Time) string {
	return fmt.Sprintf("%d:%s", userID, weekStart.UTC().Format("2006-01-02"))
}

// HasSentDigest reports whether a sent record already exists for the key.
// Failed records do not block a later retry tick.
func HasSentDigest(dedupeKey string) (bool, error) {
	var count int64
	err := DB.Model(&DigestJobRecord{}).
		Where("dedupe_key = ? AND status = ?", dedupeKey, DigestStatusSent).
		Count(&count).Error
	return count > 0, err
}

// InsertDigestRecord persists the terminal record for a digest attempt.
// The unique constraint on the dedupe key is the race guard: a duplicate
// insert means another worker finished this week first, reported as
// inserted=false.
func InsertDigestRecord(record *DigestJobRecord) (bool, error) {
	// A failed record must not block the key: a later tick may retry the
	// same week and land either outcome. Only a sent record is final.
	res := DB.Where("dedupe_key = ? AND status = ?", record.DedupeKey, DigestStatusFailed).
		Delete(&DigestJobRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	if err := DB.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListDigestEnabledPreferences returns all users with digests switched on.
func ListDigestEnabledPreferences() ([]SchedulingPreferences, error) {
	var prefs []SchedulingPreferences
	err := DB.Where("digest_enabled = ?", true).Find(&prefs).Error
	return prefs, err
}
