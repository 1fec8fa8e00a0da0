package db

import (
	"context"
	"time"

	"github.com/mkravets/followup-reminder/pkg/logger"
)

const PromptSweepInterval = 10 * time.Minute

// ExpireStalePrompts moves queued and displayed prompts past their TTL to
// the expired terminal state.
func ExpireStalePrompts(now time.Time) (int64, error) {
	if DB == nil {
		return 0, nil
	}
	res := DB.Model(&NotificationPrompt{}).
		Where("status IN ? AND expires_at <= ?", []string{PromptStatusQueued, PromptStatusDisplayed}, now).
		Updates(map[string]interface{}{
			"status":     PromptStatusExpired,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func StartPromptSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = PromptSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ExpireStalePrompts(time.Now().UTC()); err != nil {
				logger.Error("failed to expire stale prompts", "error", err)
			}
		}
	}
}
