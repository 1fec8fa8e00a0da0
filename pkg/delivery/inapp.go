package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
)

// InAppSender lands messages in the user's inbox table; the UI reads
// them out of band.
type InAppSender struct{}

func (s *InAppSender) Name() string { return "inapp" }

func (s *InAppSender) Send(ctx context.Context, to Recipient, content Content) error {
	row := db.InboxMessage{
		UserID:    to.UserID,
		Title:     content.Subject,
		Body:      content.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inapp send: %w", err)
	}
	return nil
}
