// Package delivery holds the channel adapters the core sends through.
// The core only depends on the Send contract; provider details stay on
// this side of the boundary.
package delivery

import "context"

type Content struct {
	Subject string
	Body    string
	// ReminderRef identifies the reminder behind this message, for
	// channels that render action buttons. Zero for digests.
	ReminderRef uint
}

// Recipient carries per-channel addressing for one user.
type Recipient struct {
	UserID int64
	Email  string
	ChatID int64
}

type Sender interface {
	Name() string
	Send(ctx context.Context, to Recipient, content Content) error
}
