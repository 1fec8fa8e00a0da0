package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkravets/followup-reminder/pkg/delivery"
	"github.com/mkravets/followup-reminder/pkg/logger"
)

var defaultBackoff = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// deliverAll fans the content out to every configured channel at once
// and succeeds only when all of them do.
func deliverAll(ctx context.Context, senders []delivery.Sender, to delivery.Recipient, content delivery.Content) error {
	if len(senders) == 0 {
		return errors.New("no digest channels configured")
	}

	errs := make([]error, len(senders))
	var wg sync.WaitGroup
	for i, sender := range senders {
		wg.Add(1)
		go func(i int, sender delivery.Sender) {
			defer wg.Done()
			if err := sender.Send(ctx, to, content); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sender.Name(), err)
			}
		}(i, sender)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// deliverWithRetry retries the whole multi-channel attempt with fixed
// backoff. It returns the number of retries consumed and the last error
// when every attempt failed.
func deliverWithRetry(ctx context.Context, senders []delivery.Sender, to delivery.Recipient, content delivery.Content, backoff []time.Duration) (int, error) {
	if len(backoff) == 0 {
		backoff = defaultBackoff
	}
	var lastErr error
	for attempt := 0; attempt <= len(backoff); attempt++ {
		if attempt > 0 {
			logger.Info("retrying digest delivery", "user_id", to.UserID, "attempt", attempt)
			select {
			case <-ctx.Done():
				return attempt - 1, ctx.Err()
			case <-time.After(backoff[attempt-1]):
			}
		}
		lastErr = deliverAll(ctx, senders, to, content)
		if lastErr == nil {
			return attempt, nil
		}
	}
	return len(backoff), lastErr
}
